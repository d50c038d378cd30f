package stream

import "errors"

// Error texts are part of the client-visible protocol surface and must not
// change between releases.
var (
	ErrLastEntryIDReached = errors.New("last possible entry id reached")
	ErrInvalidEntryID     = errors.New("Invalid stream ID specified as stream command argument")
	ErrDecodeEntryValue   = errors.New("failed to decode stream entry value")
)
