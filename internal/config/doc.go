// Package config provides centralized configuration management for gridcli.
//
// # Configuration Sources
//
// Configuration is assembled from the following sources, later ones winning:
//
//	1. Default() values
//	2. A YAML file (--config, or gridcli.yaml / config.yaml / configs/config.yaml)
//	3. Environment variables
//
// # Environment Variables
//
// Every field can be overridden with a GRID_* variable following the section
// and field tags:
//
//	GRID_LOGGING_LEVEL=debug
//	GRID_REPORTS_WORKERS=20
//	GRID_FEEDS_PROXY_URL=https://proxy.example/feeds
//	GRID_ARCHIVE_S3_BUCKET=grid-reports
//
// The result is checked with go-playground/validator struct tags plus a few
// cross-field rules (timezone must load, pdf width may not exceed xls width).
//
// Paths are resolved to absolute locations with ResolvePaths.
package config
