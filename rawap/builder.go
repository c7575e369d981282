package rawap

import (
	"github.com/bmflynn/rdr/ccsds"
	"github.com/bmflynn/rdr/group"
)

// ApidConfig is one APID's configured slot within a product, in the
// order tracker entries are written.
type ApidConfig struct {
	Num         uint16
	MaxExpected uint32
}

// apidStats accumulates per-APID bookkeeping while building a blob.
type apidStats struct {
	startIdx uint32
	started  bool
	received uint32
	firstIET int64
	lastIET  int64
}

// Build serializes a granule's packet groups, in order, into one RawAP
// blob for the given product APID configuration (spec.md §4.4).
func Build(groups []group.PacketGroup, apids []ApidConfig) ([]byte, error) {
	order := make([]uint16, len(apids))
	stats := make(map[uint16]*apidStats, len(apids))
	for i, a := range apids {
		order[i] = a.Num
		stats[a.Num] = &apidStats{firstIET: NoIET, lastIET: NoIET}
	}

	trackerOff := HeaderSize
	bodyOff := trackerOff + len(apids)*TrackerEntrySize

	body := make([]byte, 0, bodyOff)
	offset := uint32(bodyOff)
	var received uint32

	for _, g := range groups {
		st, ok := stats[g.APID]
		if !ok {
			// Packet for an APID not configured for this product;
			// the caller is expected to have filtered these out
			// already (spec.md treats this as UnknownApid upstream).
			continue
		}
		for _, pkt := range g.Packets {
			if !st.started {
				st.startIdx = offset
				st.started = true
				if pkt.HasIET {
					st.firstIET = int64(pkt.IET)
				}
			}
			if pkt.HasIET {
				st.lastIET = int64(pkt.IET)
			}
			body = append(body, pkt.Bytes...)
			offset += uint32(len(pkt.Bytes))
			st.received++
			received++
		}
	}

	buf := make([]byte, bodyOff)

	var reserved uint64
	for i, a := range apids {
		st := stats[a.Num]
		te := TrackerEntry{
			StartIdx: NoStartIdx,
			Reserved: a.MaxExpected,
			APID:     a.Num,
			FirstIET: NoIET,
			LastIET:  NoIET,
		}
		if st.started {
			te.StartIdx = st.startIdx
			te.Received = st.received
			te.FirstIET = st.firstIET
			te.LastIET = st.lastIET
		}
		if err := te.Encode(buf[HeaderSize+i*TrackerEntrySize:]); err != nil {
			return nil, err
		}
		reserved += uint64(a.MaxExpected)
	}

	hdr := Header{
		NextPktPos:   uint64(bodyOff) + uint64(len(body)),
		ApidCount:    uint64(len(apids)),
		PktsReserved: reserved,
		PktsReceived: uint64(received),
	}
	if err := hdr.Encode(buf); err != nil {
		return nil, err
	}

	return append(buf, body...), nil
}

// packetsFromBody decodes a sequential run of CCSDS packets; Parse uses it
// to split a RawAP body back into packets.
func packetsFromBody(body []byte) ([]ccsds.Packet, error) {
	var pkts []ccsds.Packet
	off := 0
	for off < len(body) {
		pkt, n, err := ccsds.Decode(body[off:])
		if err != nil {
			return nil, err
		}
		pkts = append(pkts, pkt)
		off += n
	}
	return pkts, nil
}
