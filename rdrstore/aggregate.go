/*************************************************************************
 * Copyright 2026 rdr contributors
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package rdrstore

import (
	"context"
	"sort"

	"github.com/bmflynn/rdr/rdrerr"
	"github.com/bmflynn/rdr/rdrlog"
)

type mergedGranule struct {
	attrs GranuleAttrs
	raw   []byte
	hits  int // number of source files contributing this index; >1 means an overwrite occurred
}

// Aggregate merges the granule lists of several RDR files of the same
// mission and product set into one new file, deduplicating by granule
// index (later input wins) and renumbering sequentially (spec.md
// §4.7).
func Aggregate(ctx context.Context, outPath string, inputs []string, log *rdrlog.Logger) error {
	if log == nil {
		log = rdrlog.NewDiscard()
	}
	if len(inputs) == 0 {
		return rdrerr.New(rdrerr.Config, "aggregate requires at least one input file")
	}

	readers := make([]*Reader, 0, len(inputs))
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()
	for _, p := range inputs {
		r, err := OpenReader(p)
		if err != nil {
			return err
		}
		readers = append(readers, r)
	}

	firstAttrs, err := readers[0].FileAttrs()
	if err != nil {
		return err
	}
	products, err := readers[0].Products()
	if err != nil {
		return err
	}
	for _, r := range readers[1:] {
		fa, err := r.FileAttrs()
		if err != nil {
			return err
		}
		if fa.MissionName != firstAttrs.MissionName {
			return rdrerr.New(rdrerr.Inconsistent, "mission name mismatch across input files")
		}
		ps, err := r.Products()
		if err != nil {
			return err
		}
		if !sameStrings(products, ps) {
			return rdrerr.New(rdrerr.Inconsistent, "product set mismatch across input files")
		}
	}

	select {
	case <-ctx.Done():
		return rdrerr.Wrap(rdrerr.Cancelled, "aggregate cancelled", ctx.Err())
	default:
	}

	// Granules are keyed by their beginning IET, which identifies the
	// granule index independently of its position k within one file.
	merged := map[string]map[int64]*mergedGranule{}
	for _, shortName := range products {
		byIndex := map[int64]*mergedGranule{}
		for _, r := range readers {
			n, err := r.GranuleCount(shortName)
			if err != nil {
				return err
			}
			for k := 0; k < n; k++ {
				attrs, err := r.GranuleAttrs(shortName, k)
				if err != nil {
					return err
				}
				raw, err := r.RawAP(shortName, k)
				if err != nil {
					return err
				}
				key := attrs.BeginningTimeIET
				if existing, ok := byIndex[key]; ok {
					existing.attrs = attrs
					existing.raw = raw
					existing.hits++
				} else {
					byIndex[key] = &mergedGranule{attrs: attrs, raw: raw, hits: 1}
				}
			}
		}
		merged[shortName] = byIndex
	}

	f, commit, abort, err := scopedCreate(outPath)
	if err != nil {
		return err
	}

	werr := func() error {
		if err := writeFileAttrs(f, firstAttrs); err != nil {
			return err
		}

		allData, err := f.CreateGroup(rootAllDataGroup)
		if err != nil {
			return rdrerr.Wrap(rdrerr.Hdf5Error, "creating "+rootAllDataGroup+" group", err)
		}
		defer allData.Close()
		dataProducts, err := f.CreateGroup(rootDataProductsGroup)
		if err != nil {
			return rdrerr.Wrap(rdrerr.Hdf5Error, "creating "+rootDataProductsGroup+" group", err)
		}
		defer dataProducts.Close()

		for _, shortName := range products {
			byIndex := merged[shortName]
			indices := make([]int64, 0, len(byIndex))
			for idx := range byIndex {
				indices = append(indices, idx)
			}
			sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

			var prevBegin int64
			var granuleIDs []string
			gds := make([]granuleData, 0, len(indices))
			for newIdx, oldIdx := range indices {
				mg := byIndex[oldIdx]
				if newIdx > 0 && mg.attrs.BeginningTimeIET <= prevBegin {
					log.Warnf("aggregate: non-monotonic granule begin time at output index %d for %s", newIdx, shortName)
				}
				prevBegin = mg.attrs.BeginningTimeIET

				attrs := mg.attrs
				if mg.hits > 1 {
					attrs.GranuleVersion++
				}
				gds = append(gds, granuleData{raw: mg.raw, attrs: attrs})
				granuleIDs = append(granuleIDs, attrs.GranuleID)
			}

			aggr := AggrAttrs{NumberGranules: len(indices), BeginningOrbitNumber: 0}
			if len(gds) > 0 {
				aggr.BeginningDate = gds[0].attrs.BeginningDate
				aggr.BeginningTime = gds[0].attrs.BeginningTime
				aggr.EndingDate = gds[len(gds)-1].attrs.EndingDate
				aggr.EndingTime = gds[len(gds)-1].attrs.EndingTime
				aggr.BeginningGranuleID = granuleIDs[0]
				aggr.EndingGranuleID = granuleIDs[len(granuleIDs)-1]
			}

			if err := writeProductTree(allData, dataProducts, shortName, gds, aggr); err != nil {
				return err
			}
		}
		return nil
	}()
	if werr != nil {
		abort()
		return werr
	}
	return commit()
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
