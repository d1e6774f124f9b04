// Package config loads the YAML configuration shared by the MCP server and
// the indexer.
package config
