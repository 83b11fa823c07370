// Package prometheus renders guard metrics in Prometheus text exposition
// format without depending on a Prometheus client library: the guard's
// snapshot model is small and fixed, so the format is written directly.
//
// Mount [Exporter.Handler] wherever the scrape endpoint should live.
package prometheus
