// Package output renders review reports and decides the exit status.
//
// Formats, with their aliases:
//   - json (structured): summary, findings and run metadata
//   - junit (markup, xml): one test case per finding
//   - github (annotation): GitHub Actions workflow commands
//   - text (plain): terminal report grouped by file
//   - sarif: SARIF v2.1.0 for code-scanning upload
//   - markdown (md): PR comment body
//
// [Render] produces the rendering as a string and [WriteFile] persists it
// atomically. [ExitCode] applies a [Policy] to the findings.
package output
