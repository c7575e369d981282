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

	"github.com/bmflynn/rdr/rdrerr"
	"github.com/bmflynn/rdr/rdrlog"
	"github.com/bmflynn/rdr/rdrstore"
)

func cmdDump(_ context.Context, args []string, log *rdrlog.Logger) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	input := fs.String("input", "", "RDR file to read")
	product := fs.String("product", "", "product short_name to dump")
	perAPID := fs.Bool("per-apid", false, "split output into one PDS file per APID")
	outDir := fs.String("o", ".", "output directory")
	satelliteID := fs.String("satellite", "", "satellite id used in the PDS filename")
	if err := fs.Parse(args); err != nil {
		return rdrerr.Wrap(rdrerr.Config, "parsing dump flags", err)
	}
	if *input == "" || *product == "" {
		return rdrerr.New(rdrerr.Config, "dump requires --input and --product")
	}

	r, err := rdrstore.OpenReader(*input)
	if err != nil {
		return err
	}
	defer r.Close()

	satID := *satelliteID
	if satID == "" {
		fa, err := r.FileAttrs()
		if err != nil {
			return err
		}
		satID = fa.PlatformShortName
	}

	d := rdrstore.NewDumper(r)
	paths, err := d.Dump(*product, satID, *outDir, *perAPID)
	if err != nil {
		return err
	}
	for _, p := range paths {
		log.Infof("wrote %s", p)
	}
	return nil
}
