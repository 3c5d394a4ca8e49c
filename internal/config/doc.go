// Package config loads the coordinator configuration.
//
// Values start from LoadBaseline, are overlaid by an optional YAML or TOML
// file and then by NODEPOLL_* environment variables, and are validated as a
// whole before use.
package config
