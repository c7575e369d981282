/*************************************************************************
 * Copyright 2026 rdr contributors
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package rdrstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dchest/safefile"

	"github.com/bmflynn/rdr/ccsds"
	"github.com/bmflynn/rdr/rdrerr"
)

// Dumper writes a product's packets back out to flat PDS files
// (spec.md §4.6, §6).
type Dumper struct {
	r *Reader
}

// NewDumper wraps an already-open Reader.
func NewDumper(r *Reader) *Dumper {
	return &Dumper{r: r}
}

// Dump writes shortName's packets, in file order, to outDir. Without
// perAPID, one file holding every packet is written, named with the
// product's overall begin/end IET. With perAPID, one file per distinct
// APID is written instead, named with that APID's own begin/end IET.
// Returns the paths written.
func (d *Dumper) Dump(shortName, satelliteID, outDir string, perAPID bool) ([]string, error) {
	n, err := d.r.GranuleCount(shortName)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	first, err := d.r.GranuleAttrs(shortName, 0)
	if err != nil {
		return nil, err
	}
	last, err := d.r.GranuleAttrs(shortName, n-1)
	if err != nil {
		return nil, err
	}
	pkts, err := d.r.AllPackets(shortName)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, rdrerr.Wrap(rdrerr.Io, "creating output directory", err)
	}

	if !perAPID {
		name := pdsName(satelliteID, shortName, first.BeginningTimeIET, last.EndingTimeIET)
		path := filepath.Join(outDir, name)
		if err := writeAtomic(path, concatPackets(pkts)); err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	byAPID := map[uint16][]ccsds.Packet{}
	order := []uint16{}
	for _, p := range pkts {
		if _, ok := byAPID[p.APID]; !ok {
			order = append(order, p.APID)
		}
		byAPID[p.APID] = append(byAPID[p.APID], p)
	}

	var paths []string
	for _, apid := range order {
		group := byAPID[apid]
		begin, end := group[0].IET, group[0].IET
		for _, p := range group {
			if p.HasIET && p.IET < begin {
				begin = p.IET
			}
			if p.HasIET && p.IET > end {
				end = p.IET
			}
		}
		name := pdsName(satelliteID, fmt.Sprintf("%d", apid), int64(begin), int64(end))
		path := filepath.Join(outDir, name)
		if err := writeAtomic(path, concatPackets(group)); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func pdsName(satelliteID, label string, beginIET, endIET int64) string {
	return fmt.Sprintf("P%s_%s_%d_%d.pds", satelliteID, label, beginIET, endIET)
}

func concatPackets(pkts []ccsds.Packet) []byte {
	var total int
	for _, p := range pkts {
		total += len(p.Bytes)
	}
	out := make([]byte, 0, total)
	for _, p := range pkts {
		out = append(out, p.Bytes...)
	}
	return out
}

func writeAtomic(path string, data []byte) error {
	fout, err := safefile.Create(path, 0o644)
	if err != nil {
		return rdrerr.Wrap(rdrerr.Io, "creating output file", err)
	}
	if _, err := fout.Write(data); err != nil {
		fout.Close()
		os.Remove(fout.Name())
		return rdrerr.Wrap(rdrerr.Io, "writing output file", err)
	}
	if err := fout.Commit(); err != nil {
		return rdrerr.Wrap(rdrerr.Io, "committing output file", err)
	}
	return nil
}
