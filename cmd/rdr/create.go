/*************************************************************************
 * Copyright 2026 rdr contributors
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/bmflynn/rdr/ccsds"
	"github.com/bmflynn/rdr/rdrconfig"
	"github.com/bmflynn/rdr/rdrerr"
	"github.com/bmflynn/rdr/rdrlog"
	"github.com/bmflynn/rdr/rdrstore"
)

// stringList collects repeated -packets flags, the way a multi-value CLI
// flag is conventionally handled with the stdlib flag package.
type stringList []string

func (s *stringList) String() string { return fmt.Sprint([]string(*s)) }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// fileChain concatenates several packet files into one PacketSource,
// advancing to the next file's ccsds.Reader as each is exhausted.
type fileChain struct {
	paths  []string
	idx    int
	closer io.Closer
	rdr    *ccsds.Reader
}

func (c *fileChain) Next() (ccsds.Packet, error) {
	for {
		if c.rdr == nil {
			if c.idx >= len(c.paths) {
				return ccsds.Packet{}, io.EOF
			}
			f, err := os.Open(c.paths[c.idx])
			if err != nil {
				return ccsds.Packet{}, rdrerr.Wrap(rdrerr.Io, "opening packet file", err)
			}
			c.idx++
			c.closer = f
			c.rdr = ccsds.NewReader(f)
		}
		pkt, err := c.rdr.Next()
		if err == io.EOF {
			c.closer.Close()
			c.rdr = nil
			continue
		}
		return pkt, err
	}
}

func cmdCreate(ctx context.Context, args []string, log *rdrlog.Logger) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	configPath := fs.String("config", "", "mission/product config file")
	product := fs.String("product", "", "primary product id to assemble")
	out := fs.String("o", "", "output RDR path")
	var packets stringList
	fs.Var(&packets, "packets", "packet file (repeatable)")
	if err := fs.Parse(args); err != nil {
		return rdrerr.Wrap(rdrerr.Config, "parsing create flags", err)
	}
	if *configPath == "" || *product == "" || len(packets) == 0 {
		return rdrerr.New(rdrerr.Config, "create requires --config, --product, and at least one --packets")
	}
	if *out == "" {
		*out = *product + ".h5"
	}

	cfg, err := rdrconfig.LoadFile(*configPath)
	if err != nil {
		return err
	}

	w := rdrstore.NewWriter(cfg, log)
	src := &fileChain{paths: packets}
	stats, err := w.Create(ctx, *out, *product, src)
	if err != nil {
		return err
	}
	for pid, n := range stats.Granules {
		log.Infof("wrote %d granule(s) for product %s", n, pid)
	}
	return nil
}
