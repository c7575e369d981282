/*************************************************************************
 * Copyright 2026 rdr contributors
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package main

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/bmflynn/rdr/ccsds"
	"github.com/bmflynn/rdr/rdrconfig"
)

// pdsPacket builds one standalone-sequence CCSDS packet with a secondary
// header IET timestamp, matching what ccsds.Reader expects on a PDS file.
func pdsPacket(apid uint16, seqCount uint16, iet int64, data []byte) []byte {
	total := ccsds.PrimaryHeaderSize + 8 + len(data)
	buf := make([]byte, total)
	w0 := uint16(1)<<11 | apid&0x7FF // secondary-header flag set
	binary.BigEndian.PutUint16(buf[0:2], w0)
	w1 := uint16(ccsds.SeqStandalone)<<14 | seqCount&0x3FFF
	binary.BigEndian.PutUint16(buf[2:4], w1)
	binary.BigEndian.PutUint16(buf[4:6], uint16(7+len(data)))
	coarse := uint32(iet / 1_000_000)
	binary.BigEndian.PutUint32(buf[6:10], coarse)
	binary.BigEndian.PutUint32(buf[10:14], 0)
	copy(buf[14:], data)
	return buf
}

func TestCreateThenDumpThenInfoRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "mission.yaml")
	b, err := rdrconfig.Default().ToYAML()
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}
	if err := os.WriteFile(cfgPath, b, 0o644); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	pdsPath := filepath.Join(dir, "in.pds")
	const base = 1698019234000000
	var raw []byte
	raw = append(raw, pdsPacket(800, 0, base, []byte("frame-one"))...)
	raw = append(raw, pdsPacket(561, 0, base, []byte("diary-one"))...)
	if err := os.WriteFile(pdsPath, raw, 0o644); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	outPath := filepath.Join(dir, "out.h5")
	rc := run([]string{"create", "--config", cfgPath, "--packets", pdsPath, "--product", "RVIRS", "-o", outPath})
	if rc != 0 {
		t.Fatalf("create exited %d", rc)
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Fatalf("expected output file: %v", err)
	}

	dumpDir := filepath.Join(dir, "dump")
	rc = run([]string{"dump", "--input", outPath, "--product", "VIIRS-SCIENCE-RDR", "-o", dumpDir})
	if rc != 0 {
		t.Fatalf("dump exited %d", rc)
	}
	entries, err := os.ReadDir(dumpDir)
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected dump output, got %v, err=%v", entries, err)
	}

	rc = run([]string{"info", "--input", outPath})
	if rc != 0 {
		t.Fatalf("info exited %d", rc)
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	if rc := run([]string{"bogus"}); rc != 2 {
		t.Fatalf("expected exit 2 for unknown command, got %d", rc)
	}
}

func TestRunRejectsMissingCreateFlags(t *testing.T) {
	if rc := run([]string{"create"}); rc == 0 {
		t.Fatalf("expected non-zero exit for missing required flags")
	}
}
