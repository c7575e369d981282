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

func cmdAggr(ctx context.Context, args []string, log *rdrlog.Logger) error {
	fs := flag.NewFlagSet("aggr", flag.ContinueOnError)
	out := fs.String("output", "", "aggregated output RDR path")
	if err := fs.Parse(args); err != nil {
		return rdrerr.Wrap(rdrerr.Config, "parsing aggr flags", err)
	}
	inputs := fs.Args()
	if *out == "" || len(inputs) == 0 {
		return rdrerr.New(rdrerr.Config, "aggr requires --output and at least one input file")
	}
	if err := rdrstore.Aggregate(ctx, *out, inputs, log); err != nil {
		return err
	}
	log.Infof("wrote aggregated file %s from %d input(s)", *out, len(inputs))
	return nil
}
