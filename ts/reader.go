package ts

import (
	"io"

	"github.com/pkg/errors"
)

// Reader yields successive 188-byte Transport Stream packets from an
// underlying byte source, resynchronizing on sync-byte loss.
type Reader struct {
	src io.Reader
	buf []byte // staging buffer, holds at most 2*PacketSize bytes
}

// NewReader returns a Reader that reads packets from src.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src, buf: make([]byte, 0, 2*PacketSize)}
}

// fill reads until buf has at least n bytes or the source is
// exhausted; returns io.EOF whenever the source ends before buf
// reaches n bytes, keeping any bytes that were read in buf.
func (r *Reader) fill(n int) error {
	for len(r.buf) < n {
		chunk := make([]byte, n-len(r.buf))
		nr, err := r.src.Read(chunk)
		if nr > 0 {
			r.buf = append(r.buf, chunk[:nr]...)
		}
		if err != nil {
			if err == io.EOF {
				return io.EOF
			}
			return err
		}
	}
	return nil
}

// Next returns the next well-formed packet. It returns io.EOF (not an
// error) when the source ends, whether at a packet boundary or after
// a partial trailing packet, which is discarded; any other read
// failure is fatal per spec.md §4.1 ("underlying I/O errors are
// fatal") and is returned wrapped.
func (r *Reader) Next() ([]byte, error) {
	for {
		if err := r.fill(PacketSize); err != nil {
			if err == io.EOF && len(r.buf) == 0 {
				return nil, io.EOF
			}
			if err == io.EOF {
				// Partial packet at EOF: "no more packets", not an error.
				return nil, io.EOF
			}
			return nil, errors.Wrap(err, "ts: reading packet")
		}

		if r.buf[0] == SyncByte {
			pkt := append([]byte(nil), r.buf[:PacketSize]...)
			r.buf = r.buf[PacketSize:]
			return pkt, nil
		}

		// Resync: scan for the next 0x47.
		i := 1
		for ; i < len(r.buf); i++ {
			if r.buf[i] == SyncByte {
				break
			}
		}
		if i >= len(r.buf) {
			r.buf = r.buf[:0]
			continue
		}
		r.buf = r.buf[i:]

		// Require two consecutive well-formed packets before declaring
		// resync, per spec.md §4.1 (matches LibISDB behavior).
		if err := r.fill(2 * PacketSize); err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, errors.Wrap(err, "ts: reading packet")
		}
		if r.buf[PacketSize] == SyncByte &&
			isNormal(r.buf[:PacketSize]) && isNormal(r.buf[PacketSize:2*PacketSize]) {
			pkt := append([]byte(nil), r.buf[:PacketSize]...)
			r.buf = r.buf[PacketSize:]
			return pkt, nil
		}
		// Coincidental 0x47: advance one byte and retry.
		r.buf = r.buf[1:]
	}
}
