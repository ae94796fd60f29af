// Package metric exports matching metrics to Prometheus.
package metric
