package rawap

import (
	"testing"

	"github.com/bmflynn/rdr/ccsds"
	"github.com/bmflynn/rdr/group"
	"github.com/bmflynn/rdr/rdrtime"
)

func standalonePacket(apid uint16, iet int64, data []byte) ccsds.Packet {
	total := ccsds.PrimaryHeaderSize + len(data)
	buf := make([]byte, total)
	buf[0] = byte(apid >> 8 & 0x7)
	buf[1] = byte(apid)
	buf[2] = byte(ccsds.SeqStandalone) << 6
	buf[4] = byte((len(data) - 1) >> 8)
	buf[5] = byte(len(data) - 1)
	copy(buf[ccsds.PrimaryHeaderSize:], data)
	return ccsds.Packet{
		APID:     apid,
		SeqFlags: ccsds.SeqStandalone,
		Length:   total,
		Bytes:    buf,
		IET:      rdrtime.IET(iet),
		HasIET:   true,
	}
}

func TestBuildSingleStandalonePacket(t *testing.T) {
	const base = 1698019234000000
	const granLen = 37405000

	g := group.PacketGroup{
		APID:    561,
		IET:     base,
		HasIET:  true,
		Packets: []ccsds.Packet{standalonePacket(561, base, []byte("payload1"))},
	}

	apids := []ApidConfig{{Num: 561, MaxExpected: 10}}
	buf, err := Build([]group.PacketGroup{g}, apids)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	blob, err := Parse(buf)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if blob.Header.PktsReceived != 1 {
		t.Fatalf("expected 1 packet received, got %d", blob.Header.PktsReceived)
	}
	if blob.Header.PktsReserved != 10 {
		t.Fatalf("expected reserved 10, got %d", blob.Header.PktsReserved)
	}
	if len(blob.Tracker) != 1 {
		t.Fatalf("expected 1 tracker entry, got %d", len(blob.Tracker))
	}
	te := blob.Tracker[0]
	if te.Received != 1 || te.FirstIET != base || te.LastIET != base {
		t.Fatalf("unexpected tracker entry: %+v", te)
	}
	if len(blob.Packets) != 1 {
		t.Fatalf("expected 1 decoded packet, got %d", len(blob.Packets))
	}
	expectedNext := uint64(HeaderSize) + uint64(TrackerEntrySize) + uint64(len(g.Packets[0].Bytes))
	if blob.Header.NextPktPos != expectedNext {
		t.Fatalf("expected NextPktPos=%d, got %d", expectedNext, blob.Header.NextPktPos)
	}
}

func TestTrackerUnseenApidSentinels(t *testing.T) {
	const base = 1698019234000000
	g := group.PacketGroup{
		APID:    561,
		IET:     base,
		HasIET:  true,
		Packets: []ccsds.Packet{standalonePacket(561, base, []byte("x"))},
	}
	apids := []ApidConfig{{Num: 561, MaxExpected: 1}, {Num: 562, MaxExpected: 5}}
	buf, err := Build([]group.PacketGroup{g}, apids)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	blob, err := Parse(buf)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	unseen := blob.Tracker[1]
	if unseen.StartIdx != NoStartIdx || unseen.Received != 0 {
		t.Fatalf("expected unseen APID sentinel tracker entry, got %+v", unseen)
	}
	if unseen.FirstIET != NoIET || unseen.LastIET != NoIET {
		t.Fatalf("expected NoIET sentinels, got %+v", unseen)
	}
}

func TestTwoPacketsSameGranule(t *testing.T) {
	const base = 1698019234000000
	g := group.PacketGroup{
		APID:   561,
		IET:    base + 10,
		HasIET: true,
		Packets: []ccsds.Packet{
			standalonePacket(561, base+10, []byte("one")),
			standalonePacket(561, base+20, []byte("two")),
		},
	}
	apids := []ApidConfig{{Num: 561, MaxExpected: 5}}
	buf, err := Build([]group.PacketGroup{g}, apids)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	blob, err := Parse(buf)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	te := blob.Tracker[0]
	if te.Received != 2 || te.FirstIET != base+10 || te.LastIET != base+20 {
		t.Fatalf("unexpected tracker counts: %+v", te)
	}
	sumLens := len(g.Packets[0].Bytes) + len(g.Packets[1].Bytes)
	expectedNext := uint64(HeaderSize + len(apids)*TrackerEntrySize + sumLens)
	if blob.Header.NextPktPos != expectedNext {
		t.Fatalf("expected NextPktPos=%d, got %d", expectedNext, blob.Header.NextPktPos)
	}
}
