/*************************************************************************
 * Copyright 2026 rdr contributors
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package rdrconfig loads the mission/product descriptor spec.md §3
// requires (satellite, origin/mode/distributor, products, rdrs). Loading
// itself is thin glue around a YAML parser; this package's job is the
// Verify() pass that turns a loaded descriptor into something the rest
// of the pipeline can trust (every rdrs.product/packed_with name resolves
// to a configured product, every apid is in range, etc), following the
// teacher's config-then-Verify shape (ingest/config.IngestConfig.Verify).
package rdrconfig

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/bmflynn/rdr/rdrerr"
)

// maxConfigSize guards against absurd config files, mirroring the
// teacher's config.LoadConfigFile size cap.
const maxConfigSize int64 = 4 * 1024 * 1024

// TypeID enumerates product type codes.
type TypeID string

const (
	Science TypeID = "SCIENCE"
	Diary   TypeID = "DIARY"
)

// Satellite describes the platform a mission's data originates from.
type Satellite struct {
	ID        string `yaml:"id"`
	ShortName string `yaml:"short_name"`
	BaseTime  int64  `yaml:"base_time"` // IET microseconds
	Mission   string `yaml:"mission"`
	// InstanceID optionally correlates config instances across runs,
	// the way the teacher's Ingester-UUID correlates ingesters; unlike
	// that field it is not required, since a single descriptor usually
	// drives one offline tool invocation rather than a long-lived
	// ingester process.
	InstanceID string `yaml:"instance_id,omitempty"`
}

// Apid is one configured APID within a product.
type Apid struct {
	Num         int    `yaml:"num"`
	Name        string `yaml:"name"`
	MaxExpected uint32 `yaml:"max_expected"`
}

// Product describes one sensor-defined set of APIDs sharing a granule
// length.
type Product struct {
	ProductID string `yaml:"product_id"`
	ShortName string `yaml:"short_name"`
	TypeID    TypeID `yaml:"type_id"`
	Sensor    string `yaml:"sensor"`
	GranLen   int64  `yaml:"gran_len"` // microseconds
	Apids     []Apid `yaml:"apids"`
}

// RDR declares one output file: a primary product plus zero or more
// companion products packed alongside it.
type RDR struct {
	Product    string   `yaml:"product"`
	PackedWith []string `yaml:"packed_with,omitempty"`
}

// Config is the full mission/product descriptor.
type Config struct {
	Satellite    Satellite `yaml:"satellite"`
	Origin       string    `yaml:"origin"`
	Mode         string    `yaml:"mode"`
	Distributor  string    `yaml:"distributor"`
	Products     []Product `yaml:"products"`
	RDRs         []RDR     `yaml:"rdrs"`
}

// LoadFile reads and parses a config file, then verifies it. The
// format is auto-detected as YAML (which also accepts JSON, since JSON
// is a syntactic subset of YAML), matching spec.md §6.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, rdrerr.Wrap(rdrerr.Io, "opening config file", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, rdrerr.Wrap(rdrerr.Io, "statting config file", err)
	}
	if fi.Size() > maxConfigSize {
		return nil, rdrerr.New(rdrerr.Config, "config file too large")
	}

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, f); err != nil {
		return nil, rdrerr.Wrap(rdrerr.Io, "reading config file", err)
	}
	return LoadBytes(buf.Bytes())
}

// LoadBytes parses and verifies a config descriptor from raw bytes.
func LoadBytes(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, rdrerr.Wrap(rdrerr.Config, "parsing config", err)
	}
	if err := c.Verify(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Verify checks internal consistency of the descriptor: every rdrs entry
// names configured products, every apid is in the valid CCSDS range, and
// the satellite id is non-empty.
func (c *Config) Verify() error {
	if c.Satellite.ID == "" {
		return rdrerr.New(rdrerr.Config, "satellite.id is required")
	}
	if c.Satellite.InstanceID != "" {
		if _, err := uuid.Parse(c.Satellite.InstanceID); err != nil {
			return rdrerr.Wrap(rdrerr.Config, "satellite.instance_id is not a valid uuid", err)
		}
	}
	if len(c.Products) == 0 {
		return rdrerr.New(rdrerr.Config, "at least one product is required")
	}
	byID := make(map[string]*Product, len(c.Products))
	for i := range c.Products {
		p := &c.Products[i]
		if p.ProductID == "" {
			return rdrerr.New(rdrerr.Config, "product_id is required")
		}
		if p.GranLen <= 0 {
			return rdrerr.New(rdrerr.Config, fmt.Sprintf("product %s: gran_len must be positive", p.ProductID))
		}
		for _, a := range p.Apids {
			if a.Num < 0 || a.Num > 2047 {
				return rdrerr.New(rdrerr.Config, fmt.Sprintf("product %s: apid %d out of range", p.ProductID, a.Num))
			}
		}
		byID[p.ProductID] = p
	}
	if len(c.RDRs) == 0 {
		return rdrerr.New(rdrerr.Config, "at least one rdrs entry is required")
	}
	for _, r := range c.RDRs {
		if _, ok := byID[r.Product]; !ok {
			return rdrerr.New(rdrerr.Config, fmt.Sprintf("rdrs: unknown primary product %q", r.Product))
		}
		for _, pw := range r.PackedWith {
			if _, ok := byID[pw]; !ok {
				return rdrerr.New(rdrerr.Config, fmt.Sprintf("rdrs: unknown companion product %q", pw))
			}
		}
	}
	return nil
}

// Product looks up a configured product by id.
func (c *Config) Product(productID string) (*Product, bool) {
	for i := range c.Products {
		if c.Products[i].ProductID == productID {
			return &c.Products[i], true
		}
	}
	return nil, false
}

// Bundle returns the primary product plus its companions for an rdrs
// entry naming primaryProductID, in the order declared in the
// descriptor: primary first, then packed_with in listed order.
func (c *Config) Bundle(primaryProductID string) ([]*Product, error) {
	for _, r := range c.RDRs {
		if r.Product != primaryProductID {
			continue
		}
		out := make([]*Product, 0, 1+len(r.PackedWith))
		p, _ := c.Product(r.Product)
		out = append(out, p)
		for _, pw := range r.PackedWith {
			cp, _ := c.Product(pw)
			out = append(out, cp)
		}
		return out, nil
	}
	return nil, rdrerr.New(rdrerr.Config, fmt.Sprintf("no rdrs entry for primary product %q", primaryProductID))
}

// Default returns a minimal but complete sample descriptor, the payload
// the `config` CLI subcommand serializes back out (spec.md §6).
func Default() *Config {
	return &Config{
		Satellite: Satellite{
			ID:        "npp",
			ShortName: "NPP",
			BaseTime:  1698019234000000,
			Mission:   "S-NPP",
		},
		Origin:      "nsof",
		Mode:        "S",
		Distributor: "contact@example.org",
		Products: []Product{
			{
				ProductID: "RVIRS",
				ShortName: "VIIRS-SCIENCE-RDR",
				TypeID:    Science,
				Sensor:    "VIIRS",
				GranLen:   85350000,
				Apids: []Apid{
					{Num: 800, Name: "VIIRS-SCIENCE", MaxExpected: 3200},
				},
			},
			{
				ProductID: "RNSCA",
				ShortName: "SPACECRAFT-DIARY-RDR",
				TypeID:    Diary,
				Sensor:    "SPACECRAFT",
				GranLen:   37405000,
				Apids: []Apid{
					{Num: 561, Name: "RONPS-NP", MaxExpected: 10},
				},
			},
		},
		RDRs: []RDR{
			{Product: "RVIRS", PackedWith: []string{"RNSCA"}},
		},
	}
}

// ToYAML serializes the descriptor back to YAML, for the `config` CLI
// subcommand.
func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}
