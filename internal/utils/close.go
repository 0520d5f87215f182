package utils

import (
	"io"
)

// drainLimit bounds how much of an unread body is discarded before close.
const drainLimit = 64 << 10

// DrainClose discards what is left of an HTTP body, up to a small limit,
// then closes it so the connection can go back to the pool.
func DrainClose(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, drainLimit))
	_ = rc.Close()
}
