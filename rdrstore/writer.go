/*************************************************************************
 * Copyright 2026 rdr contributors
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package rdrstore

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/bmflynn/rdr/ccsds"
	"github.com/bmflynn/rdr/granule"
	"github.com/bmflynn/rdr/group"
	"github.com/bmflynn/rdr/rawap"
	"github.com/bmflynn/rdr/rdrconfig"
	"github.com/bmflynn/rdr/rdrerr"
	"github.com/bmflynn/rdr/rdrlog"
	"github.com/bmflynn/rdr/rdrtime"
)

// PacketSource is a lazy, pull-based packet stream. ccsds.Reader
// satisfies this directly.
type PacketSource interface {
	Next() (ccsds.Packet, error)
}

// Writer assembles a packet stream into granules and writes the
// resulting RDR file, per spec.md §4.5.
type Writer struct {
	cfg *rdrconfig.Config
	log *rdrlog.Logger
}

// NewWriter builds a Writer bound to a mission/product descriptor.
func NewWriter(cfg *rdrconfig.Config, log *rdrlog.Logger) *Writer {
	if log == nil {
		log = rdrlog.NewDiscard()
	}
	return &Writer{cfg: cfg, log: log}
}

// Stats summarizes one Create invocation.
type Stats struct {
	Granules map[string]int // product_id -> granule count written
}

// Create drains src, routes packets through the grouper and granule
// assembler for primaryProductID's bundle (primary + companions), and
// writes the resulting RDR file at outPath. The file is written under
// a temporary name and atomically renamed on success; on any error or
// on ctx cancellation, no file is left at outPath (spec.md §4.5, §5).
func (w *Writer) Create(ctx context.Context, outPath, primaryProductID string, src PacketSource) (Stats, error) {
	bundle, err := w.cfg.Bundle(primaryProductID)
	if err != nil {
		return Stats{}, err
	}

	apidProduct := map[uint16]string{}
	apidConfigs := map[string][]rawap.ApidConfig{}
	timing := map[string]granule.Timing{}
	for _, p := range bundle {
		var acs []rawap.ApidConfig
		for _, a := range p.Apids {
			apidProduct[uint16(a.Num)] = p.ProductID
			acs = append(acs, rawap.ApidConfig{Num: uint16(a.Num), MaxExpected: a.MaxExpected})
		}
		apidConfigs[p.ProductID] = acs
		timing[p.ProductID] = granule.Timing{
			Base:    rdrtime.IET(w.cfg.Satellite.BaseTime),
			GranLen: p.GranLen,
		}
	}

	grouper := group.New()
	asm := granule.New(timing)
	granules := map[string][]*granule.Granule{}

	route := func(pg group.PacketGroup) error {
		productID, ok := apidProduct[pg.APID]
		if !ok {
			return nil
		}
		emitted, anomaly, ferr := asm.Feed(productID, pg)
		if ferr != nil {
			return ferr
		}
		if anomaly != "" {
			w.log.Warnf("%s: product=%s apid=%d", anomaly, productID, pg.APID)
		}
		if emitted != nil {
			granules[emitted.ProductID] = append(granules[emitted.ProductID], emitted)
		}
		return nil
	}

loop:
	for {
		select {
		case <-ctx.Done():
			return Stats{}, rdrerr.Wrap(rdrerr.Cancelled, "create cancelled", ctx.Err())
		default:
		}

		pkt, perr := src.Next()
		if perr == io.EOF {
			break loop
		}
		if perr != nil {
			return Stats{}, rdrerr.Wrap(rdrerr.Io, "reading packet stream", perr)
		}
		if _, ok := apidProduct[pkt.APID]; !ok {
			w.log.Warnf("UnknownApid: dropping packet for apid %d", pkt.APID)
			continue
		}
		done, anomalies := grouper.Feed(pkt)
		for _, a := range anomalies {
			w.log.Warnf("%s: apid=%d", a.Kind, a.APID)
		}
		for _, pg := range done {
			if err := route(pg); err != nil {
				return Stats{}, err
			}
		}
	}

	for _, pg := range grouper.Flush() {
		if pg.Truncated {
			w.log.Warnf("TruncatedGroup: apid=%d", pg.APID)
		}
		if err := route(pg); err != nil {
			return Stats{}, err
		}
	}
	for _, g := range asm.Flush() {
		granules[g.ProductID] = append(granules[g.ProductID], g)
	}

	f, commit, abort, err := scopedCreate(outPath)
	if err != nil {
		return Stats{}, err
	}

	now := rdrtime.IETFromUTC(time.Now().UTC())
	stats := Stats{Granules: map[string]int{}}

	werr := func() error {
		fa := FileAttrs{
			Distributor:       w.cfg.Distributor,
			MissionName:       w.cfg.Satellite.Mission,
			PlatformShortName: w.cfg.Satellite.ShortName,
			DatasetSource:     w.cfg.Origin,
			HDFCreationDate:   rdrtime.FormatDate(now),
			HDFCreationTime:   rdrtime.FormatTime(now),
		}
		if err := writeFileAttrs(f, fa); err != nil {
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

		for _, p := range bundle {
			gs := granules[p.ProductID]
			sort.Slice(gs, func(i, j int) bool { return gs[i].Index < gs[j].Index })

			gds := make([]granuleData, 0, len(gs))
			var granuleIDs []string
			for _, g := range gs {
				body, err := rawap.Build(g.Groups, apidConfigs[p.ProductID])
				if err != nil {
					return err
				}
				attrs := buildGranuleAttrs(w.cfg, p, g, now)
				gds = append(gds, granuleData{raw: body, attrs: attrs})
				granuleIDs = append(granuleIDs, attrs.GranuleID)
			}
			stats.Granules[p.ProductID] = len(gs)

			aggr := buildAggrAttrs(gs, granuleIDs)
			if err := writeProductTree(allData, dataProducts, p.ShortName, gds, aggr); err != nil {
				return err
			}
		}
		return nil
	}()
	if werr != nil {
		abort()
		return Stats{}, werr
	}
	if err := commit(); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func granuleID(satID string, beginIET rdrtime.IET) string {
	tenths := int64(beginIET) * 10
	if tenths < 0 {
		tenths = 0
	}
	return fmt.Sprintf("%s%013X", strings.ToUpper(satID), tenths)
}

func buildGranuleAttrs(cfg *rdrconfig.Config, p *rdrconfig.Product, g *granule.Granule, creation rdrtime.IET) GranuleAttrs {
	gid := granuleID(cfg.Satellite.ID, g.BeginIET)
	refID := fmt.Sprintf("%s_%s_%s", p.ShortName, gid, rdrtime.FormatTime(creation))
	return GranuleAttrs{
		BeginningDate:      rdrtime.FormatDate(g.BeginIET),
		BeginningTime:      rdrtime.FormatTime(g.BeginIET),
		EndingDate:         rdrtime.FormatDate(g.EndIET),
		EndingTime:         rdrtime.FormatTime(g.EndIET),
		BeginningTimeIET:   int64(g.BeginIET),
		EndingTimeIET:      int64(g.EndIET),
		CreationDate:       rdrtime.FormatDate(creation),
		CreationTime:       rdrtime.FormatTime(creation),
		GranuleID:          gid,
		GranuleVersion:     1,
		GranuleStatus:      "N/A",
		LEOAFlag:           "No",
		PacketType:         p.Sensor,
		PacketTypeCount:    len(p.Apids),
		PercentMissingData: g.PercentMissing(),
		ReferenceID:        refID,
	}
}

func buildAggrAttrs(gs []*granule.Granule, granuleIDs []string) AggrAttrs {
	if len(gs) == 0 {
		return AggrAttrs{}
	}
	first, last := gs[0], gs[len(gs)-1]
	return AggrAttrs{
		BeginningDate:        rdrtime.FormatDate(first.BeginIET),
		BeginningTime:        rdrtime.FormatTime(first.BeginIET),
		EndingDate:           rdrtime.FormatDate(last.EndIET),
		EndingTime:           rdrtime.FormatTime(last.EndIET),
		BeginningOrbitNumber: 0,
		NumberGranules:       len(gs),
		BeginningGranuleID:   granuleIDs[0],
		EndingGranuleID:      granuleIDs[len(granuleIDs)-1],
	}
}
