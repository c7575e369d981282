package ccsds

import (
	"bufio"
	"io"

	"github.com/bmflynn/rdr/rdrerr"
)

// Reader is a lazy, pull-based source of decoded packets over a stream of
// concatenated CCSDS space packets (a PDS file, per spec.md §6).
type Reader struct {
	r   *bufio.Reader
	hdr [PrimaryHeaderSize]byte
}

// NewReader wraps an io.Reader as a packet source.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next packet in the stream, or io.EOF when the stream
// is exhausted cleanly between packets.
func (pr *Reader) Next() (Packet, error) {
	if _, err := io.ReadFull(pr.r, pr.hdr[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return Packet{}, rdrerr.Wrap(rdrerr.Io, "truncated packet header", err)
		}
		return Packet{}, err // propagate clean io.EOF as-is
	}
	_, _, _, _, total, err := DecodeHeader(pr.hdr[:])
	if err != nil {
		return Packet{}, err
	}
	buf := make([]byte, total)
	copy(buf, pr.hdr[:])
	if _, err := io.ReadFull(pr.r, buf[PrimaryHeaderSize:]); err != nil {
		return Packet{}, rdrerr.Wrap(rdrerr.Io, "truncated packet body", err)
	}
	pkt, _, err := Decode(buf)
	return pkt, err
}
