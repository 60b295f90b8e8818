// Package gitctx produces the unified diff a review run works on.
//
// Each review mode is a [Provider]: [Staged], [Unstaged], [Commit] and
// [Range] shell out to git, while [Reader] takes a ready-made diff from
// stdin or a file. Exclude globs drop whole file patches; the diff is never
// truncated, since oversized input is handled by segmentation downstream.
//
// [ChangedFiles] parses a diff with go-gitdiff and lists the files whose
// new contents can be checked by the rule validator.
package gitctx
