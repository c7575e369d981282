/*************************************************************************
 * Copyright 2026 rdr contributors
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package main

import (
	"encoding/json"
	"flag"
	"os"

	"github.com/bmflynn/rdr/rdrerr"
	"github.com/bmflynn/rdr/rdrstore"
)

func cmdInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	input := fs.String("input", "", "RDR file to describe")
	if err := fs.Parse(args); err != nil {
		return rdrerr.Wrap(rdrerr.Config, "parsing info flags", err)
	}
	if *input == "" {
		return rdrerr.New(rdrerr.Config, "info requires --input")
	}

	r, err := rdrstore.OpenReader(*input)
	if err != nil {
		return err
	}
	defer r.Close()

	info, err := rdrstore.NewExtractor(r).Info()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(info); err != nil {
		return rdrerr.Wrap(rdrerr.Io, "encoding info JSON", err)
	}
	return nil
}
