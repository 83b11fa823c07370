// Package otel exports guard metrics through an OpenTelemetry meter using
// observable instruments. Values are pulled from one snapshot per
// collection, so every exported series within a scrape is consistent.
package otel
