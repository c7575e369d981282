/*************************************************************************
 * Copyright 2026 rdr contributors
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package ccsds decodes CCSDS space-packet primary headers and, for
// packets whose secondary-header flag is set, the IET timestamp JPSS
// instruments carry in an 8-byte seconds-plus-fraction time field
// immediately following the primary header. spec.md treats the packet decoder as an
// external collaborator ("assumed to provide primary-header fields and...
// an IET timestamp"); this package is the minimal concrete implementation
// of that collaborator, kept separate so the rest of the pipeline only
// depends on the Packet type, not on how it was produced.
package ccsds

import (
	"encoding/binary"

	"github.com/bmflynn/rdr/rdrerr"
	"github.com/bmflynn/rdr/rdrtime"
)

// PrimaryHeaderSize is the fixed size of a CCSDS space packet primary
// header in bytes.
const PrimaryHeaderSize = 6

// SeqFlags are the CCSDS sequence-flag values from the primary header's
// third field.
type SeqFlags uint8

const (
	SeqCont       SeqFlags = 0
	SeqFirst      SeqFlags = 1
	SeqLast       SeqFlags = 2
	SeqStandalone SeqFlags = 3
)

func (f SeqFlags) String() string {
	switch f {
	case SeqCont:
		return "cont"
	case SeqFirst:
		return "first"
	case SeqLast:
		return "last"
	case SeqStandalone:
		return "standalone"
	default:
		return "invalid"
	}
}

// Packet is a decoded CCSDS space packet: its primary-header fields, the
// original raw bytes (primary header plus data), and, when the secondary
// header flag is set and a timestamp could be extracted, its IET.
type Packet struct {
	APID      uint16
	SeqFlags  SeqFlags
	SeqCount  uint16
	Length    int // total length of Bytes, primary header included
	Bytes     []byte
	IET       rdrtime.IET
	HasIET    bool
	SecHeader bool
}

// DecodeHeader parses only the 6-byte primary header, returning the
// fields and the total packet length (header plus data).  It does not
// require the full packet body to be present.
func DecodeHeader(buf []byte) (apid uint16, seq SeqFlags, seqCount uint16, secHdr bool, total int, err error) {
	if len(buf) < PrimaryHeaderSize {
		err = rdrerr.New(rdrerr.Io, "buffer shorter than CCSDS primary header")
		return
	}
	w0 := binary.BigEndian.Uint16(buf[0:2])
	secHdr = (w0>>11)&0x1 != 0
	apid = w0 & 0x7FF

	w1 := binary.BigEndian.Uint16(buf[2:4])
	seq = SeqFlags((w1 >> 14) & 0x3)
	seqCount = w1 & 0x3FFF

	dataLen := binary.BigEndian.Uint16(buf[4:6])
	total = PrimaryHeaderSize + int(dataLen) + 1
	return
}

// cdsTimeSize is the size, in bytes, of the time field this package
// assumes follows the primary header on secondary-headered packets. It is
// not the standard CDS layout (2 bytes of day count, 4 bytes of
// milliseconds-of-day); it is decoded as 4 bytes of seconds since epoch
// followed by 4 bytes of sub-second fraction at 2^-32 second resolution,
// converted to IET microseconds.
const cdsTimeSize = 8

// Decode fully decodes one packet starting at buf[0], returning the
// packet and the number of bytes consumed. The extracted timestamp is not
// validated against any epoch.
func Decode(buf []byte) (pkt Packet, n int, err error) {
	apid, seq, seqCount, secHdr, total, derr := DecodeHeader(buf)
	if derr != nil {
		err = derr
		return
	}
	if len(buf) < total {
		err = rdrerr.New(rdrerr.Io, "buffer shorter than declared packet length")
		return
	}
	pkt = Packet{
		APID:      apid,
		SeqFlags:  seq,
		SeqCount:  seqCount,
		Length:    total,
		Bytes:     append([]byte(nil), buf[:total]...),
		SecHeader: secHdr,
	}
	if secHdr && total >= PrimaryHeaderSize+cdsTimeSize {
		coarse := binary.BigEndian.Uint32(buf[PrimaryHeaderSize : PrimaryHeaderSize+4])
		fine := binary.BigEndian.Uint32(buf[PrimaryHeaderSize+4 : PrimaryHeaderSize+8])
		us := int64(coarse)*1_000_000 + (int64(fine)*1_000_000)/(1<<32)
		pkt.IET = rdrtime.IET(us)
		pkt.HasIET = true
	}
	n = total
	return
}
