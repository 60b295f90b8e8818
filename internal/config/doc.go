// Package config loads and merges diffgate configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags the user actually set
//  2. Environment variables (DIFFGATE_PROVIDER, DIFFGATE_CONCURRENCY,
//     DIFFGATE_CACHE_ENABLED, ...)
//  3. Config file ($XDG_CONFIG_HOME/diffgate/config.yaml or --config)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Save] to write a config file and
// [SetField] to update a single key.
package config
