package rdrtime

import (
	"testing"

	"github.com/bmflynn/rdr/rdrerr"
)

func TestGranuleOfBoundary(t *testing.T) {
	base := IET(1698019234000000)
	const granLen = 37405000

	g, begin, end, err := GranuleOf(base, base, granLen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g != 0 || begin != base || end != base+granLen {
		t.Fatalf("unexpected granule: g=%d begin=%d end=%d", g, begin, end)
	}

	// exactly one granule length past base lands in the next granule
	g, begin, _, err = GranuleOf(base+granLen, base, granLen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g != 1 || begin != base+granLen {
		t.Fatalf("expected granule 1, got g=%d begin=%d", g, begin)
	}

	// one microsecond before base must fail
	if _, _, _, err = GranuleOf(base-1, base, granLen); err == nil {
		t.Fatalf("expected TimeBeforeEpoch error")
	} else if rdrerr.KindOf(err) != rdrerr.TimeBeforeEpoch {
		t.Fatalf("expected TimeBeforeEpoch, got %v", rdrerr.KindOf(err))
	}
}

func TestUTCRoundTrip(t *testing.T) {
	base := IET(1698019234000000)
	ut := UTCFromIET(base)
	back := IETFromUTC(ut)
	if back != base {
		t.Fatalf("round trip mismatch: %d != %d", back, base)
	}
}

func TestFormatHelpers(t *testing.T) {
	iet := IET(1698019234000000)
	d := FormatDate(iet)
	if len(d) != 8 {
		t.Fatalf("expected 8 char date, got %q", d)
	}
	tm := FormatTime(iet)
	if len(tm) != len("150405.000000Z") {
		t.Fatalf("unexpected time format: %q", tm)
	}
	if tm[len(tm)-1] != 'Z' {
		t.Fatalf("expected trailing Z, got %q", tm)
	}
}

func TestMid(t *testing.T) {
	if m := Mid(0, 100); m != 50 {
		t.Fatalf("expected 50, got %d", m)
	}
}
