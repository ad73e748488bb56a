// Package prometheus exposes client metrics as a prometheus.Collector.
//
// The collector reads a fresh snapshot on every scrape; nothing is
// registered globally.
package prometheus
