// Package protocol implements incremental framing over a stream of
// concatenated JSON records with no length prefix or delimiter.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrFraming reports that the leading record in the receive buffer was
// structurally unparseable and the buffer was dropped to resynchronize.
// The connection stays usable; the peer's next record realigns the stream.
var ErrFraming = errors.New("protocol: framing error")

// Decoder accumulates stream bytes and extracts complete records as they
// become available. Record boundaries are discovered with a real structured
// decoder that reports byte consumption, so brace characters inside string
// values never desynchronize the stream.
//
// A Decoder is owned by a single reader goroutine and is not safe for
// concurrent use.
type Decoder struct {
	buf []byte

	// MaxRecordSize bounds how many buffered bytes an incomplete record may
	// occupy before the buffer is dropped as a framing error. Zero means no
	// bound.
	MaxRecordSize int
}

// NewDecoder returns an empty Decoder with the given record size bound.
func NewDecoder(maxRecordSize int) *Decoder {
	return &Decoder{MaxRecordSize: maxRecordSize}
}

// Feed appends newly received bytes and returns every complete message now
// available, in stream order. Partial trailing input is retained for the
// next call.
//
// Two error cases are reported alongside any successfully decoded messages:
// ErrFraming when the buffer had to be dropped to resync, and a protocol
// error when a record parsed as JSON but did not describe a known message.
// Either way the Decoder remains usable.
func (d *Decoder) Feed(p []byte) ([]Message, error) {
	d.buf = append(d.buf, p...)

	var msgs []Message
	var firstErr error

	for {
		// Resync: anything before the first plausible record start is noise.
		start := bytes.IndexByte(d.buf, '{')
		if start < 0 {
			d.buf = d.buf[:0]
			break
		}
		d.buf = d.buf[start:]

		dec := json.NewDecoder(bytes.NewReader(d.buf))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				// Incomplete record: wait for more bytes, unless the buffer
				// has outgrown the configured bound.
				if d.MaxRecordSize > 0 && len(d.buf) > d.MaxRecordSize {
					d.buf = d.buf[:0]
					if firstErr == nil {
						firstErr = fmt.Errorf("%w: record exceeds %d bytes", ErrFraming, d.MaxRecordSize)
					}
				}
				break
			}
			// Structurally invalid: drop-and-resync rather than kill an
			// otherwise healthy connection.
			d.buf = d.buf[:0]
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: %v", ErrFraming, err)
			}
			break
		}

		d.buf = d.buf[dec.InputOffset():]

		msg, err := Decode(raw)
		if err != nil {
			// The record was consumed; skip it and keep parsing.
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		msgs = append(msgs, msg)
	}

	// Copy the pending tail so consumed prefixes do not pin the old array.
	if len(d.buf) == 0 {
		d.buf = nil
	} else {
		d.buf = append(make([]byte, 0, len(d.buf)), d.buf...)
	}

	return msgs, firstErr
}

// Pending reports how many bytes are buffered awaiting record completion.
func (d *Decoder) Pending() int {
	return len(d.buf)
}
