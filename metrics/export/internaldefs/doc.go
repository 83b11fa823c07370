// Package internaldefs holds the shared metric-name table used by the
// Prometheus and OTel exporters. Keeping one table guarantees both backends
// export identical metric names for the same MetricID.
//
// This package is internal to metrics/export; integrators import the
// exporter packages, never this one.
package internaldefs
