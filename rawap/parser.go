package rawap

import (
	"github.com/bmflynn/rdr/ccsds"
	"github.com/bmflynn/rdr/rdrerr"
)

// Blob is a fully-decoded RawApplicationPackets buffer.
type Blob struct {
	Header   Header
	Tracker  []TrackerEntry
	Packets  []ccsds.Packet // in storage order
}

// Parse decodes a RawAP blob: header, tracker table, then the packet
// body in storage order (spec.md §4.4's "reverse parser").
func Parse(buf []byte) (Blob, error) {
	hdr, err := DecodeHeader(buf)
	if err != nil {
		return Blob{}, err
	}
	if uint64(len(buf)) < hdr.NextPktPos {
		return Blob{}, rdrerr.New(rdrerr.Io, "RawAP blob shorter than its own NextPktPos")
	}

	trackerOff := HeaderSize
	bodyOff := trackerOff + int(hdr.ApidCount)*TrackerEntrySize
	if len(buf) < bodyOff {
		return Blob{}, rdrerr.New(rdrerr.Io, "RawAP blob too short for its tracker table")
	}

	tracker := make([]TrackerEntry, hdr.ApidCount)
	for i := range tracker {
		te, terr := DecodeTrackerEntry(buf[trackerOff+i*TrackerEntrySize:])
		if terr != nil {
			return Blob{}, terr
		}
		tracker[i] = te
	}

	body := buf[bodyOff:hdr.NextPktPos]
	pkts, perr := packetsFromBody(body)
	if perr != nil {
		return Blob{}, perr
	}

	return Blob{Header: hdr, Tracker: tracker, Packets: pkts}, nil
}
