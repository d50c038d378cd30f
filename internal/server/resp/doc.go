// Package respserver serves basin streams over the Redis RESP2 protocol.
// It supports PING, ECHO, QUIT and the stream commands XADD, XLEN, XRANGE,
// XREVRANGE and XDEL. One goroutine per connection; all commands of a
// connection operate in a single namespace.
package respserver
