package rdrconfig

import (
	"testing"

	"github.com/bmflynn/rdr/rdrerr"
)

func TestDefaultVerifies(t *testing.T) {
	c := Default()
	if err := c.Verify(); err != nil {
		t.Fatalf("default config failed to verify: %v", err)
	}
}

func TestLoadBytesRoundTrip(t *testing.T) {
	c := Default()
	b, err := c.ToYAML()
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}
	got, err := LoadBytes(b)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if got.Satellite.ID != c.Satellite.ID {
		t.Fatalf("expected satellite id %q, got %q", c.Satellite.ID, got.Satellite.ID)
	}
	if len(got.Products) != len(c.Products) {
		t.Fatalf("expected %d products, got %d", len(c.Products), len(got.Products))
	}
}

func TestVerifyRejectsUnknownRDRProduct(t *testing.T) {
	c := Default()
	c.RDRs = []RDR{{Product: "NOPE"}}
	err := c.Verify()
	if rdrerr.KindOf(err) != rdrerr.Config {
		t.Fatalf("expected Config error, got %v", err)
	}
}

func TestVerifyRejectsUnknownCompanion(t *testing.T) {
	c := Default()
	c.RDRs = []RDR{{Product: "RVIRS", PackedWith: []string{"NOPE"}}}
	err := c.Verify()
	if rdrerr.KindOf(err) != rdrerr.Config {
		t.Fatalf("expected Config error, got %v", err)
	}
}

func TestVerifyRejectsBadGranLen(t *testing.T) {
	c := Default()
	c.Products[0].GranLen = 0
	err := c.Verify()
	if rdrerr.KindOf(err) != rdrerr.Config {
		t.Fatalf("expected Config error, got %v", err)
	}
}

func TestBundleOrdersPrimaryThenCompanions(t *testing.T) {
	c := Default()
	bundle, err := c.Bundle("RVIRS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bundle) != 2 || bundle[0].ProductID != "RVIRS" || bundle[1].ProductID != "RNSCA" {
		t.Fatalf("unexpected bundle: %+v", bundle)
	}
}
