// Package config provides configuration structures and utilities for
// figmaFeeder: crawl sizing, API credentials, report preferences, and the
// optional .figmafeeder YAML file with per-file-key overrides.
package config
