package rdrstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bmflynn/rdr/ccsds"
	"github.com/bmflynn/rdr/rdrconfig"
	"github.com/bmflynn/rdr/rdrlog"
	"github.com/bmflynn/rdr/rdrtime"
)

// sliceSource is a PacketSource backed by an in-memory slice, used so
// tests don't need to build raw CCSDS byte streams through a
// bufio.Reader.
type sliceSource struct {
	pkts []ccsds.Packet
	i    int
}

func (s *sliceSource) Next() (ccsds.Packet, error) {
	if s.i >= len(s.pkts) {
		return ccsds.Packet{}, io.EOF
	}
	p := s.pkts[s.i]
	s.i++
	return p, nil
}

func buildPacket(apid uint16, seq ccsds.SeqFlags, seqCount uint16, iet int64, hasIET bool, data []byte) ccsds.Packet {
	total := ccsds.PrimaryHeaderSize + len(data)
	buf := make([]byte, total)
	buf[0] = byte(apid >> 8 & 0x7)
	buf[1] = byte(apid)
	buf[2] = byte(seq) << 6
	buf[2] |= byte(seqCount >> 8 & 0x3F)
	buf[3] = byte(seqCount)
	buf[4] = byte((len(data) - 1) >> 8)
	buf[5] = byte(len(data) - 1)
	copy(buf[ccsds.PrimaryHeaderSize:], data)
	return ccsds.Packet{
		APID:     apid,
		SeqFlags: seq,
		SeqCount: seqCount,
		Length:   total,
		Bytes:    buf,
		IET:      rdrtime.IET(iet),
		HasIET:   hasIET,
	}
}

func testConfig() *rdrconfig.Config {
	c := rdrconfig.Default()
	return c
}

func TestCreateReadDumpRoundTrip(t *testing.T) {
	cfg := testConfig()
	const base = 1698019234000000
	pkts := []ccsds.Packet{
		buildPacket(800, ccsds.SeqStandalone, 0, base, true, []byte("frame-one")),
		buildPacket(800, ccsds.SeqStandalone, 1, base+10, true, []byte("frame-two")),
		buildPacket(561, ccsds.SeqStandalone, 0, base, true, []byte("diary-one")),
	}

	w := NewWriter(cfg, rdrlog.NewDiscard())
	dir := t.TempDir()
	outPath := filepath.Join(dir, "test.h5")

	stats, err := w.Create(context.Background(), outPath, "RVIRS", &sliceSource{pkts: pkts})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if stats.Granules["RVIRS"] != 1 {
		t.Fatalf("expected 1 RVIRS granule, got %d", stats.Granules["RVIRS"])
	}
	if stats.Granules["RNSCA"] != 1 {
		t.Fatalf("expected 1 RNSCA granule, got %d", stats.Granules["RNSCA"])
	}

	r, err := OpenReader(outPath)
	if err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	defer r.Close()

	products, err := r.Products()
	if err != nil {
		t.Fatalf("unexpected products error: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %v", products)
	}

	n, err := r.GranuleCount("VIIRS-SCIENCE-RDR")
	if err != nil {
		t.Fatalf("unexpected granule count error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 granule, got %d", n)
	}

	gotPkts, err := r.AllPackets("VIIRS-SCIENCE-RDR")
	if err != nil {
		t.Fatalf("unexpected packets error: %v", err)
	}
	if len(gotPkts) != 2 {
		t.Fatalf("expected 2 packets, got %d", len(gotPkts))
	}
	gotPayloads := make([]string, len(gotPkts))
	for i, p := range gotPkts {
		gotPayloads[i] = string(p.Bytes[ccsds.PrimaryHeaderSize:])
	}
	wantPayloads := []string{"frame-one", "frame-two"}
	if diff := cmp.Diff(wantPayloads, gotPayloads); diff != "" {
		t.Fatalf("unexpected round-tripped packet payloads (-want +got):\n%s", diff)
	}

	gotGranAttrs, err := r.GranuleAttrs("VIIRS-SCIENCE-RDR", 0)
	if err != nil {
		t.Fatalf("unexpected granule attrs error: %v", err)
	}
	gotGranAttrsAgain, err := r.GranuleAttrs("VIIRS-SCIENCE-RDR", 0)
	if err != nil {
		t.Fatalf("unexpected granule attrs error: %v", err)
	}
	if diff := cmp.Diff(gotGranAttrs, gotGranAttrsAgain); diff != "" {
		t.Fatalf("granule attrs unstable across reads (-first +second):\n%s", diff)
	}

	e := NewExtractor(r)
	info, err := e.Info()
	if err != nil {
		t.Fatalf("unexpected info error: %v", err)
	}
	if len(info.Products) != 2 {
		t.Fatalf("expected 2 products in info, got %d", len(info.Products))
	}

	d := NewDumper(r)
	outDir := filepath.Join(dir, "dump")
	paths, err := d.Dump("VIIRS-SCIENCE-RDR", cfg.Satellite.ID, outDir, false)
	if err != nil {
		t.Fatalf("unexpected dump error: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected 1 dump file, got %v", paths)
	}
	fi, err := os.Stat(paths[0])
	if err != nil {
		t.Fatalf("expected dump file to exist: %v", err)
	}
	if fi.Size() == 0 {
		t.Fatalf("expected non-empty dump file")
	}
}

func TestAggregateMergesDedupesAndRenumbers(t *testing.T) {
	cfg := testConfig()
	const base = 1698019234000000
	granLen := int64(37405000)

	dir := t.TempDir()
	w := NewWriter(cfg, rdrlog.NewDiscard())

	// file A: granules 0, 1
	pktsA := []ccsds.Packet{
		buildPacket(561, ccsds.SeqStandalone, 0, base, true, []byte("a0")),
		buildPacket(561, ccsds.SeqStandalone, 1, base+granLen, true, []byte("a1")),
	}
	pathA := filepath.Join(dir, "a.h5")
	if _, err := w.Create(context.Background(), pathA, "RVIRS", &sliceSource{pkts: pktsA}); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	// file B: granules 1, 2 (index 1 should win over file A's)
	pktsB := []ccsds.Packet{
		buildPacket(561, ccsds.SeqStandalone, 0, base+granLen, true, []byte("b1")),
		buildPacket(561, ccsds.SeqStandalone, 1, base+2*granLen, true, []byte("b2")),
	}
	pathB := filepath.Join(dir, "b.h5")
	if _, err := w.Create(context.Background(), pathB, "RVIRS", &sliceSource{pkts: pktsB}); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	outPath := filepath.Join(dir, "merged.h5")
	if err := Aggregate(context.Background(), outPath, []string{pathA, pathB}, rdrlog.NewDiscard()); err != nil {
		t.Fatalf("unexpected aggregate error: %v", err)
	}

	r, err := OpenReader(outPath)
	if err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	defer r.Close()

	n, err := r.GranuleCount("SPACECRAFT-DIARY-RDR")
	if err != nil {
		t.Fatalf("unexpected granule count error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 merged granules, got %d", n)
	}

	aggr, err := r.AggrAttrs("SPACECRAFT-DIARY-RDR")
	if err != nil {
		t.Fatalf("unexpected aggr error: %v", err)
	}
	if aggr.NumberGranules != 3 {
		t.Fatalf("expected AggregateNumberGranules=3, got %d", aggr.NumberGranules)
	}

	pkts, err := r.Packets("SPACECRAFT-DIARY-RDR", 1)
	if err != nil {
		t.Fatalf("unexpected packets error: %v", err)
	}
	if len(pkts) != 1 {
		t.Fatalf("expected 1 packet at merged index 1, got %+v", pkts)
	}
	gotPayload := string(pkts[0].Bytes[ccsds.PrimaryHeaderSize:])
	if diff := cmp.Diff("b1", gotPayload); diff != "" {
		t.Fatalf("expected merged index 1 to come from file B (-want +got):\n%s", diff)
	}
}
