// Diffgate is a CLI that gates code changes on an AI review.
//
// It splits a diff into segments, reviews them under bounded concurrency,
// merges the findings with local rule violations and renders the result as
// text, JSON, JUnit XML, GitHub annotations, SARIF or Markdown with
// deterministic exit codes suitable for CI gating.
//
// Usage:
//
//	diffgate review staged                  # review staged changes
//	diffgate review unstaged                # review working tree changes
//	diffgate review commit <sha>            # review a specific commit
//	diffgate review range origin/main..HEAD # review a revision range
//	git diff | diffgate review stdin        # review a diff from stdin
//	diffgate ci --format junit --out report.xml origin/main..HEAD
package main
