/*************************************************************************
 * Copyright 2026 rdr contributors
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package group implements the packet grouper (spec.md §4.2): it folds a
// sequence of CCSDS packets for possibly many APIDs into per-APID
// PacketGroups, applying the CCSDS sequence-flag state machine
// independently per APID.
package group

import (
	"github.com/bmflynn/rdr/ccsds"
	"github.com/bmflynn/rdr/rdrtime"
)

// PacketGroup is an ordered, non-empty sequence of packets of the same
// APID forming one logical observation.
type PacketGroup struct {
	APID      uint16
	IET       rdrtime.IET
	HasIET    bool
	Packets   []ccsds.Packet
	Truncated bool
}

// Anomaly describes a recoverable parsing-level anomaly the grouper
// encountered while processing a packet, for the caller to log. It is not
// counted in N_Percent_Missing_Data.
type Anomaly struct {
	Kind string // "OrphanContinuation"
	APID uint16
}

// Grouper holds one open group per APID and applies spec.md §4.2's
// sequence-flag transition table as packets of each APID arrive.
type Grouper struct {
	open map[uint16]*PacketGroup
}

// New returns a ready-to-use Grouper.
func New() *Grouper {
	return &Grouper{open: make(map[uint16]*PacketGroup)}
}

// Feed processes one packet and returns zero or more completed groups (in
// emission order) plus any anomalies observed while handling it.
func (g *Grouper) Feed(pkt ccsds.Packet) (done []PacketGroup, anomalies []Anomaly) {
	cur, hasOpen := g.open[pkt.APID]

	switch pkt.SeqFlags {
	case ccsds.SeqStandalone:
		if hasOpen {
			done = append(done, finish(cur, true))
			delete(g.open, pkt.APID)
		}
		done = append(done, singleton(pkt))
	case ccsds.SeqFirst:
		if hasOpen {
			done = append(done, finish(cur, true))
		}
		g.open[pkt.APID] = singletonOpen(pkt)
	case ccsds.SeqCont:
		if !hasOpen {
			anomalies = append(anomalies, Anomaly{Kind: "OrphanContinuation", APID: pkt.APID})
			return
		}
		cur.Packets = append(cur.Packets, pkt)
	case ccsds.SeqLast:
		if !hasOpen {
			anomalies = append(anomalies, Anomaly{Kind: "OrphanContinuation", APID: pkt.APID})
			return
		}
		cur.Packets = append(cur.Packets, pkt)
		done = append(done, finish(cur, false))
		delete(g.open, pkt.APID)
	}
	return
}

// Flush emits every still-open group as truncated; callers invoke this
// once at end of stream. Iteration order is not significant: groups are
// routed by APID downstream regardless of flush order.
func (g *Grouper) Flush() []PacketGroup {
	out := make([]PacketGroup, 0, len(g.open))
	for apid, grp := range g.open {
		out = append(out, finish(grp, true))
		delete(g.open, apid)
	}
	return out
}

func singletonOpen(pkt ccsds.Packet) *PacketGroup {
	pg := &PacketGroup{
		APID:    pkt.APID,
		Packets: []ccsds.Packet{pkt},
	}
	if pkt.HasIET {
		pg.IET, pg.HasIET = pkt.IET, true
	}
	return pg
}

func singleton(pkt ccsds.Packet) PacketGroup {
	return finish(singletonOpen(pkt), false)
}

func finish(pg *PacketGroup, truncated bool) PacketGroup {
	pg.Truncated = truncated
	return *pg
}
