// Package prometheus renders passport engine metrics in the Prometheus text exposition
// format. Mount [Exporter.Handler] on any router; nothing is registered globally.
package prometheus
