/*************************************************************************
 * Copyright 2026 rdr contributors
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package rdrstore

import (
	"sort"

	"gonum.org/v1/hdf5"

	"github.com/bmflynn/rdr/ccsds"
	"github.com/bmflynn/rdr/rawap"
	"github.com/bmflynn/rdr/rdrerr"
)

// Reader opens an existing RDR file read-only and walks its tree,
// per spec.md §4.6.
type Reader struct {
	f *hdf5.File
}

// OpenReader opens path read-only.
func OpenReader(path string) (*Reader, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, rdrerr.Wrap(rdrerr.Hdf5Error, "opening RDR file", err)
	}
	return &Reader{f: f}, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.f.Close()
}

// FileAttrs returns the root attributes.
func (r *Reader) FileAttrs() (FileAttrs, error) {
	return readFileAttrs(r.f)
}

func (r *Reader) openProductGroup(shortName string) (*hdf5.Group, error) {
	dataProducts, err := r.f.OpenGroup(rootDataProductsGroup)
	if err != nil {
		return nil, rdrerr.Wrap(rdrerr.Hdf5Error, "opening "+rootDataProductsGroup+" group", err)
	}
	defer dataProducts.Close()
	pg, err := dataProducts.OpenGroup(shortName)
	if err != nil {
		return nil, rdrerr.Wrap(rdrerr.Hdf5Error, "unknown product "+shortName, err)
	}
	return pg, nil
}

func (r *Reader) openAllDataGroup(shortName string) (*hdf5.Group, error) {
	allData, err := r.f.OpenGroup(rootAllDataGroup)
	if err != nil {
		return nil, rdrerr.Wrap(rdrerr.Hdf5Error, "opening "+rootAllDataGroup+" group", err)
	}
	defer allData.Close()
	ag, err := allData.OpenGroup(allDataGroupName(shortName))
	if err != nil {
		return nil, rdrerr.Wrap(rdrerr.Hdf5Error, "unknown product "+shortName, err)
	}
	return ag, nil
}

// Products lists the short_name of every product present, in
// lexical order.
func (r *Reader) Products() ([]string, error) {
	dataProducts, err := r.f.OpenGroup(rootDataProductsGroup)
	if err != nil {
		return nil, rdrerr.Wrap(rdrerr.Hdf5Error, "opening "+rootDataProductsGroup+" group", err)
	}
	defer dataProducts.Close()

	n, err := dataProducts.NumObjects()
	if err != nil {
		return nil, rdrerr.Wrap(rdrerr.Hdf5Error, "listing products", err)
	}
	names := make([]string, 0, n)
	for i := uint(0); i < n; i++ {
		name, err := dataProducts.ObjectNameByIndex(i)
		if err != nil {
			return nil, rdrerr.Wrap(rdrerr.Hdf5Error, "listing products", err)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// GranuleCount returns the number of granules stored for shortName.
// A product group holds exactly one `_Gran_<k>` dataset per granule
// plus the single `_Aggr` dataset, so the granule count is the
// group's object count less one.
func (r *Reader) GranuleCount(shortName string) (int, error) {
	pg, err := r.openProductGroup(shortName)
	if err != nil {
		return 0, err
	}
	defer pg.Close()

	n, err := pg.NumObjects()
	if err != nil {
		return 0, rdrerr.Wrap(rdrerr.Hdf5Error, "counting granules", err)
	}
	if n == 0 {
		return 0, nil
	}
	return int(n) - 1, nil
}

// AggrAttrs returns the aggregation attributes for shortName.
func (r *Reader) AggrAttrs(shortName string) (AggrAttrs, error) {
	pg, err := r.openProductGroup(shortName)
	if err != nil {
		return AggrAttrs{}, err
	}
	defer pg.Close()

	dset, err := pg.OpenDataset(aggrDatasetName(shortName))
	if err != nil {
		return AggrAttrs{}, rdrerr.Wrap(rdrerr.Hdf5Error, "opening aggregation dataset", err)
	}
	defer dset.Close()
	return readAggrAttrs(dset)
}

// GranuleAttrs returns the attributes of granule k of shortName.
func (r *Reader) GranuleAttrs(shortName string, k int) (GranuleAttrs, error) {
	pg, err := r.openProductGroup(shortName)
	if err != nil {
		return GranuleAttrs{}, err
	}
	defer pg.Close()

	dset, err := pg.OpenDataset(granDatasetName(shortName, k))
	if err != nil {
		return GranuleAttrs{}, rdrerr.Wrap(rdrerr.Hdf5Error, "unknown granule index", err)
	}
	defer dset.Close()
	return readGranuleAttrs(dset)
}

// RawAP returns the raw RawApplicationPackets blob for granule k.
func (r *Reader) RawAP(shortName string, k int) ([]byte, error) {
	ag, err := r.openAllDataGroup(shortName)
	if err != nil {
		return nil, err
	}
	defer ag.Close()

	dset, err := ag.OpenDataset(rawAPDatasetName(k))
	if err != nil {
		return nil, rdrerr.Wrap(rdrerr.Hdf5Error, "unknown granule index", err)
	}
	defer dset.Close()
	return readByteDataset(dset)
}

// Tracker parses granule k's RawAP blob and returns its tracker table.
func (r *Reader) Tracker(shortName string, k int) ([]rawap.TrackerEntry, error) {
	raw, err := r.RawAP(shortName, k)
	if err != nil {
		return nil, err
	}
	blob, err := rawap.Parse(raw)
	if err != nil {
		return nil, err
	}
	return blob.Tracker, nil
}

// Packets parses and returns granule k's packets in storage order.
func (r *Reader) Packets(shortName string, k int) ([]ccsds.Packet, error) {
	raw, err := r.RawAP(shortName, k)
	if err != nil {
		return nil, err
	}
	blob, err := rawap.Parse(raw)
	if err != nil {
		return nil, err
	}
	return blob.Packets, nil
}

// AllPackets concatenates every granule's packets, in granule order,
// reproducing the original per-APID packet stream (spec.md §4.6, §8
// round-trip property).
func (r *Reader) AllPackets(shortName string) ([]ccsds.Packet, error) {
	n, err := r.GranuleCount(shortName)
	if err != nil {
		return nil, err
	}
	var out []ccsds.Packet
	for k := 0; k < n; k++ {
		pkts, err := r.Packets(shortName, k)
		if err != nil {
			return nil, err
		}
		out = append(out, pkts...)
	}
	return out, nil
}
