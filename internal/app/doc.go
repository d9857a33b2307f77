// Package app wires gridcli together.
//
// New loads the configuration (defaults, optional YAML file, GRID_*
// environment), installs the JSON logger and OpenTelemetry providers,
// resolves the data directories and builds the services used by the
// commands:
//
//	Downloads  daily report downloader with its tracking file
//	Reports    cleaning and hierarchy reconstruction into level CSV files
//	Feeds      meritindia feeds, direct or through a proxy
//	Health     data directory checks for the proxy server
//
// Serve runs the feed proxy until its context is cancelled and shuts the
// server down within server.shutdown_timeout. Close must be called once
// the process is done with the application.
package app
