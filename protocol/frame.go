package protocol

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// ErrSyntax signals that the bytes read so far can never form a valid
// message no matter what follows: either the terminator appeared past the
// admissible length, or enough bytes have arrived without a terminator to
// prove the message is oversize.
var ErrSyntax = errors.New("protocol: syntax error")

// Framer turns a byte stream into terminator-delimited payloads. It retains
// carry-over bytes between reads so a message spanning several reads, or
// several messages coalesced into a single read, are both handled without
// re-reading from the transport.
type Framer struct {
	conn       net.Conn
	terminator []byte
	buf        []byte
	scanned    int // prefix of buf already searched for the terminator
}

// NewFramer wraps conn. terminator must be non-empty.
func NewFramer(conn net.Conn, terminator []byte) *Framer {
	return &Framer{
		conn:       conn,
		terminator: terminator,
	}
}

// maxBufferedBeforeTerminator is the largest buffered length that still
// leaves room for a valid message of at most maxLen bytes followed by the
// terminator. One more byte than this, with no terminator found, proves
// the message is oversize.
func maxBufferedBeforeTerminator(maxLen int, terminator []byte) int {
	return maxLen + len(terminator) - 1
}

// Next reads from the transport, resetting the deadline to timeout on every
// successful read, until a complete payload (of at most maxLen bytes,
// excluding the terminator) is framed, a syntax error is proven, or the
// transport fails or times out.
//
// A transport failure or timeout is returned as-is (callers distinguish it
// from ErrSyntax via errors.Is / net.Error).
func (f *Framer) Next(ctx context.Context, maxLen int, timeout time.Duration) ([]byte, error) {
	for {
		if payload, ok, err := f.tryExtract(maxLen); err != nil {
			return nil, err
		} else if ok {
			return payload, nil
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := f.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, fmt.Errorf("protocol: set read deadline: %w", err)
		}

		chunk := make([]byte, 4096)
		n, err := f.conn.Read(chunk)
		if n > 0 {
			f.buf = append(f.buf, chunk[:n]...)
		}
		if err != nil {
			if n > 0 {
				// Give the newly-arrived bytes a chance to complete or
				// prove-oversize a message before surfacing the error.
				if payload, ok, extractErr := f.tryExtract(maxLen); extractErr != nil {
					return nil, extractErr
				} else if ok {
					return payload, nil
				}
			}
			return nil, err
		}
	}
}

// tryExtract applies the two termination rules from the carry-over buffer
// without touching the transport.
func (f *Framer) tryExtract(maxLen int) (payload []byte, ok bool, err error) {
	searchFrom := f.scanned - (len(f.terminator) - 1)
	if searchFrom < 0 {
		searchFrom = 0
	}

	if idx := bytes.Index(f.buf[searchFrom:], f.terminator); idx >= 0 {
		p := searchFrom + idx
		if p > maxLen {
			return nil, false, ErrSyntax
		}
		payload = append([]byte(nil), f.buf[:p]...)
		rest := f.buf[p+len(f.terminator):]
		f.buf = append([]byte(nil), rest...)
		f.scanned = 0
		return payload, true, nil
	}

	f.scanned = len(f.buf)

	if len(f.buf) > maxBufferedBeforeTerminator(maxLen, f.terminator) {
		return nil, false, ErrSyntax
	}

	return nil, false, nil
}

// Reset discards any carry-over bytes. Used when a session is torn down.
func (f *Framer) Reset() {
	f.buf = nil
	f.scanned = 0
}

// IsTimeout reports whether err is a network timeout, as opposed to a
// syntax error or a hard transport failure.
func IsTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// IsClosed reports whether err represents an expected close of the
// transport (EOF or use of an already-closed connection).
func IsClosed(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	return strings.Contains(err.Error(), "use of closed network connection")
}
