// Package httpserver exposes basin's HTTP API: health, namespace creation,
// stream append/range/search, a long-poll tail endpoint, and the Prometheus
// metrics endpoint.
package httpserver
