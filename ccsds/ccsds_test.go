package ccsds

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
)

func buildPacket(apid uint16, seq SeqFlags, seqCount uint16, secHdr bool, coarse, fine uint32, data []byte) []byte {
	body := data
	if secHdr {
		ts := make([]byte, 8)
		binary.BigEndian.PutUint32(ts[0:4], coarse)
		binary.BigEndian.PutUint32(ts[4:8], fine)
		body = append(ts, data...)
	}
	buf := make([]byte, PrimaryHeaderSize+len(body))
	var w0 uint16 = apid & 0x7FF
	if secHdr {
		w0 |= 1 << 11
	}
	binary.BigEndian.PutUint16(buf[0:2], w0)
	w1 := (uint16(seq) << 14) | (seqCount & 0x3FFF)
	binary.BigEndian.PutUint16(buf[2:4], w1)
	binary.BigEndian.PutUint16(buf[4:6], uint16(len(body)-1))
	copy(buf[PrimaryHeaderSize:], body)
	return buf
}

func TestDecodeStandalone(t *testing.T) {
	raw := buildPacket(561, SeqStandalone, 42, true, 1698019234, 0, []byte("hello"))
	pkt, n, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(raw) {
		t.Fatalf("expected to consume %d bytes, got %d", len(raw), n)
	}
	if pkt.APID != 561 || pkt.SeqFlags != SeqStandalone || pkt.SeqCount != 42 {
		t.Fatalf("unexpected header fields: %+v", pkt)
	}
	if !pkt.HasIET || pkt.IET != 1698019234000000 {
		t.Fatalf("unexpected IET: %+v", pkt)
	}
}

func TestReaderIteratesMultiplePackets(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(buildPacket(1, SeqFirst, 0, false, 0, 0, []byte("aaaa")))
	buf.Write(buildPacket(1, SeqLast, 1, false, 0, 0, []byte("bbbb")))

	r := NewReader(&buf)
	p1, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p1.SeqFlags != SeqFirst {
		t.Fatalf("expected first packet")
	}
	p2, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p2.SeqFlags != SeqLast {
		t.Fatalf("expected last packet")
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}
