// Package metrics records basket split outcomes. The Prometheus collector
// exports them for scraping; Nop discards them.
package metrics
