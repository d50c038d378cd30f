// Package serverrun boots a basin node: it opens the runtime and serves the
// RESP and HTTP listeners until the context is canceled.
package serverrun
