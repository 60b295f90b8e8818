// Package review is the change-review pipeline.
//
// [Split] cuts a unified diff into segments of whole file patches that fit a
// byte limit. A [Dispatcher] sends the segments to a reviewer in windows of
// concurrent calls, paced by a delay between windows, and [ParseFindings]
// turns each tagged reply into [Finding] values. [Aggregate] appends rule
// violations after the reviewer's findings, and [Pipeline] ties the steps
// together into a [Report].
//
// A failed call is fatal only when the whole diff fits in one window; larger
// runs log the failure and keep going.
package review
