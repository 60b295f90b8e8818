// Package cli wires together the Cobra command tree for the diffgate binary.
//
// It defines the root command and all subcommands (review, ci, config,
// models, cache, version), binds flags onto the layered configuration, builds
// the review pipeline and maps its outcome onto deterministic exit codes:
// 0 success, 1 policy threshold exceeded, 2 usage error, 3 authentication
// failure, 4 runtime failure.
package cli
