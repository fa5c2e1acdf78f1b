// Package config provides configuration structures and utilities for
// reviewaudit. It defines the options of an audit run (targets, similarity
// threshold, concurrency, report format) and the optional .reviewaudit
// YAML file that overrides the page layout and the category rules.
package config
