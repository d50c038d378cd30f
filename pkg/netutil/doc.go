// Package netutil is basin's platform socket layer: connect with optional
// deadlines, TCP tuning, full-buffer writes, line reads, bulk file-to-socket
// transfer, and a poll-style readiness wait.
//
// Connects are deadline-based: the dialer owns the non-blocking transition
// and readiness wait internally, and a successful connect always comes back
// in blocking mode with deadlines cleared. The bulk transfer path prefers the
// platform zero-copy primitive in bounded chunks and falls back to a plain
// read/write loop where none exists; only an interrupted call is retried,
// any other error aborts the transfer.
package netutil
