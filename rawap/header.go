/*************************************************************************
 * Copyright 2026 rdr contributors
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package rawap implements the RawApplicationPackets blob: encoding and
// decoding of the fixed header, the per-APID tracker table, and the
// packet body (spec.md §3, §4.4). All integers are big-endian, matching
// CCSDS/network convention, independent of host byte order (spec.md §9).
package rawap

import (
	"encoding/binary"

	"github.com/bmflynn/rdr/rdrerr"
	"github.com/bmflynn/rdr/rdrtime"
)

// HeaderSize is the fixed size, in bytes, of the RawApplicationPackets
// header. Four 8-byte counters plus 16 reserved bytes (see
// TrackerEntrySize for the other fixed-width structure in this blob).
const HeaderSize = 48

// TrackerEntrySize is the fixed size, in bytes, of one APID tracker
// entry.
const TrackerEntrySize = 32

// NoStartIdx is the sentinel pkt_tracker_start_idx value for an APID
// never seen in a granule.
const NoStartIdx = 0xFFFFFFFF

// NoIET is the sentinel first_iet/last_iet value for an APID never seen
// in a granule.
const NoIET = -1

// Header is the RawApplicationPackets blob's fixed-size preamble.
type Header struct {
	NextPktPos   uint64
	ApidCount    uint64
	PktsReserved uint64
	PktsReceived uint64
	// Reserved is 16 bytes of version/padding; spec.md §9 leaves its
	// contents an open question, resolved here to all-zero (see
	// DESIGN.md).
	Reserved [16]byte
}

// Encode writes the header into buf, which must be at least HeaderSize
// bytes.
func (h Header) Encode(buf []byte) error {
	if len(buf) < HeaderSize {
		return rdrerr.New(rdrerr.Io, "buffer too small for RawAP header")
	}
	binary.BigEndian.PutUint64(buf[0:8], h.NextPktPos)
	binary.BigEndian.PutUint64(buf[8:16], h.ApidCount)
	binary.BigEndian.PutUint64(buf[16:24], h.PktsReserved)
	binary.BigEndian.PutUint64(buf[24:32], h.PktsReceived)
	copy(buf[32:48], h.Reserved[:])
	return nil
}

// DecodeHeader reads a Header from buf, which must be at least
// HeaderSize bytes.
func DecodeHeader(buf []byte) (h Header, err error) {
	if len(buf) < HeaderSize {
		err = rdrerr.New(rdrerr.Io, "buffer too small for RawAP header")
		return
	}
	h.NextPktPos = binary.BigEndian.Uint64(buf[0:8])
	h.ApidCount = binary.BigEndian.Uint64(buf[8:16])
	h.PktsReserved = binary.BigEndian.Uint64(buf[16:24])
	h.PktsReceived = binary.BigEndian.Uint64(buf[24:32])
	copy(h.Reserved[:], buf[32:48])
	return
}

// TrackerEntry indexes one APID's occurrences within a RawAP blob.
type TrackerEntry struct {
	StartIdx uint32 // byte offset of first packet of this APID, or NoStartIdx
	Reserved uint32 // pkts_reserved, the configured max_expected
	Received uint32
	APID     uint16
	Pad      uint16
	FirstIET int64
	LastIET  int64
}

// Empty reports whether the tracker entry represents an APID never seen
// in the granule.
func (t TrackerEntry) Empty() bool {
	return t.Received == 0
}

// Encode writes the tracker entry into buf, which must be at least
// TrackerEntrySize bytes.
func (t TrackerEntry) Encode(buf []byte) error {
	if len(buf) < TrackerEntrySize {
		return rdrerr.New(rdrerr.Io, "buffer too small for tracker entry")
	}
	binary.BigEndian.PutUint32(buf[0:4], t.StartIdx)
	binary.BigEndian.PutUint32(buf[4:8], t.Reserved)
	binary.BigEndian.PutUint32(buf[8:12], t.Received)
	binary.BigEndian.PutUint16(buf[12:14], t.APID)
	binary.BigEndian.PutUint16(buf[14:16], t.Pad)
	binary.BigEndian.PutUint64(buf[16:24], uint64(t.FirstIET))
	binary.BigEndian.PutUint64(buf[24:32], uint64(t.LastIET))
	return nil
}

// DecodeTrackerEntry reads one tracker entry from buf.
func DecodeTrackerEntry(buf []byte) (t TrackerEntry, err error) {
	if len(buf) < TrackerEntrySize {
		err = rdrerr.New(rdrerr.Io, "buffer too small for tracker entry")
		return
	}
	t.StartIdx = binary.BigEndian.Uint32(buf[0:4])
	t.Reserved = binary.BigEndian.Uint32(buf[4:8])
	t.Received = binary.BigEndian.Uint32(buf[8:12])
	t.APID = binary.BigEndian.Uint16(buf[12:14])
	t.Pad = binary.BigEndian.Uint16(buf[14:16])
	t.FirstIET = int64(binary.BigEndian.Uint64(buf[16:24]))
	t.LastIET = int64(binary.BigEndian.Uint64(buf[24:32]))
	return
}

// FirstIETValue and LastIETValue convert to rdrtime.IET for callers that
// want the typed value.
func (t TrackerEntry) FirstIETValue() rdrtime.IET { return rdrtime.IET(t.FirstIET) }
func (t TrackerEntry) LastIETValue() rdrtime.IET  { return rdrtime.IET(t.LastIET) }
