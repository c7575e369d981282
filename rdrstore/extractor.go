/*************************************************************************
 * Copyright 2026 rdr contributors
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package rdrstore

import (
	"github.com/bmflynn/rdr/rawap"
)

// Extractor exposes an RDR file's structure as plain data, for the
// `info` and `extract` CLI commands (spec.md §4.6, §6).
type Extractor struct {
	r *Reader
}

// NewExtractor wraps an already-open Reader.
func NewExtractor(r *Reader) *Extractor {
	return &Extractor{r: r}
}

// GranuleInfo is one granule's attributes plus its tracker table.
type GranuleInfo struct {
	Index   int                  `json:"index"`
	Attrs   GranuleAttrs         `json:"attrs"`
	Tracker []rawap.TrackerEntry `json:"tracker"`
}

// ProductInfo is one product's full granule list plus its aggregation
// attributes.
type ProductInfo struct {
	ShortName string        `json:"short_name"`
	Granules  []GranuleInfo `json:"granules"`
	Aggr      AggrAttrs     `json:"aggr"`
}

// Info is the full structure the `info` command serializes to JSON.
type Info struct {
	File     FileAttrs     `json:"file"`
	Products []ProductInfo `json:"products"`
}

// Info walks the entire file and returns its structured description.
func (e *Extractor) Info() (Info, error) {
	fa, err := e.r.FileAttrs()
	if err != nil {
		return Info{}, err
	}
	names, err := e.r.Products()
	if err != nil {
		return Info{}, err
	}
	info := Info{File: fa}
	for _, name := range names {
		pi, err := e.Product(name)
		if err != nil {
			return Info{}, err
		}
		info.Products = append(info.Products, pi)
	}
	return info, nil
}

// Product returns one product's full granule list and aggregation
// attributes.
func (e *Extractor) Product(shortName string) (ProductInfo, error) {
	n, err := e.r.GranuleCount(shortName)
	if err != nil {
		return ProductInfo{}, err
	}
	aggr, err := e.r.AggrAttrs(shortName)
	if err != nil {
		return ProductInfo{}, err
	}
	pi := ProductInfo{ShortName: shortName, Aggr: aggr}
	for k := 0; k < n; k++ {
		gi, err := e.Granule(shortName, k)
		if err != nil {
			return ProductInfo{}, err
		}
		pi.Granules = append(pi.Granules, gi)
	}
	return pi, nil
}

// Granule returns one granule's attributes and tracker table.
func (e *Extractor) Granule(shortName string, k int) (GranuleInfo, error) {
	attrs, err := e.r.GranuleAttrs(shortName, k)
	if err != nil {
		return GranuleInfo{}, err
	}
	tracker, err := e.r.Tracker(shortName, k)
	if err != nil {
		return GranuleInfo{}, err
	}
	return GranuleInfo{Index: k, Attrs: attrs, Tracker: tracker}, nil
}
