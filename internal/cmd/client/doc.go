// Package client contains Cobra CLI commands that talk to a basin server
// over the RESP protocol.
package client
