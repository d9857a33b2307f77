// Package feeds collects the meritindia generation feeds.
//
// Three feeds are supported: the live demand per state, the live all-India
// counters and the daily generation mix per state. A Fetcher answers typed
// requests either by querying the publisher directly (Direct) or through a
// feed proxy (ProxyClient). Runner appends the rows to CSV files and, for
// the daily feed, advances the per-state tracker after every batch.
package feeds
