package granule

import (
	"testing"

	"github.com/bmflynn/rdr/ccsds"
	"github.com/bmflynn/rdr/group"
	"github.com/bmflynn/rdr/rdrtime"
)

func mkGroup(apid uint16, iet rdrtime.IET) group.PacketGroup {
	return group.PacketGroup{
		APID:    apid,
		IET:     iet,
		HasIET:  true,
		Packets: []ccsds.Packet{{APID: apid, IET: iet, HasIET: true}},
	}
}

func TestSingleGranuleScenario1(t *testing.T) {
	const base rdrtime.IET = 1698019234000000
	const granLen = 37405000
	a := New(map[string]Timing{"RNSCA": {Base: base, GranLen: granLen}})

	emitted, anomaly, err := a.Feed("RNSCA", mkGroup(561, base))
	if err != nil || anomaly != "" {
		t.Fatalf("unexpected err=%v anomaly=%q", err, anomaly)
	}
	if emitted != nil {
		t.Fatalf("first group should not emit yet")
	}
	flushed := a.Flush()
	if len(flushed) != 1 {
		t.Fatalf("expected one granule on flush, got %d", len(flushed))
	}
	g := flushed[0]
	if g.Index != 0 || g.BeginIET != base || g.EndIET != base+granLen {
		t.Fatalf("unexpected granule bounds: %+v", g)
	}
	if len(g.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(g.Groups))
	}
}

func TestBoundaryCrossingEmitsPriorGranule(t *testing.T) {
	const base rdrtime.IET = 1698019234000000
	const granLen = 37405000
	a := New(map[string]Timing{"RNSCA": {Base: base, GranLen: granLen}})

	a.Feed("RNSCA", mkGroup(561, base))
	emitted, _, err := a.Feed("RNSCA", mkGroup(561, base+granLen))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emitted == nil || emitted.Index != 0 {
		t.Fatalf("expected granule 0 to be emitted, got %+v", emitted)
	}
	flushed := a.Flush()
	if len(flushed) != 1 || flushed[0].Index != 1 {
		t.Fatalf("expected granule 1 on flush, got %+v", flushed)
	}
}

func TestLateGroupDropped(t *testing.T) {
	const base rdrtime.IET = 1698019234000000
	const granLen = 37405000
	a := New(map[string]Timing{"RNSCA": {Base: base, GranLen: granLen}})

	a.Feed("RNSCA", mkGroup(561, base+granLen)) // opens granule 1
	_, anomaly, err := a.Feed("RNSCA", mkGroup(561, base))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if anomaly != "LateGroup" {
		t.Fatalf("expected LateGroup anomaly, got %q", anomaly)
	}
	flushed := a.Flush()
	if len(flushed) != 1 || flushed[0].Index != 1 {
		t.Fatalf("expected only granule 1 survives, got %+v", flushed)
	}
}

func TestTimeBeforeEpochSurfaces(t *testing.T) {
	const base rdrtime.IET = 1000
	a := New(map[string]Timing{"RNSCA": {Base: base, GranLen: 100}})
	_, _, err := a.Feed("RNSCA", mkGroup(561, base-1))
	if err == nil {
		t.Fatalf("expected TimeBeforeEpoch error")
	}
}
