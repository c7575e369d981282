/*************************************************************************
 * Copyright 2026 rdr contributors
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Command rdr is the CLI front end for the RDR assembly/disassembly
// pipeline: create, dump, aggr, config, info, and extract subcommands
// (spec.md §6). spec.md treats the CLI as thin glue around the library
// packages; this file owns only flag parsing, wiring, and exit codes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/bmflynn/rdr/rdrerr"
	"github.com/bmflynn/rdr/rdrlog"
)

const usage = `usage: rdr [-l LEVEL] <command> ...
  create  --config FILE --packets FILE [--packets FILE ...] --product PID [-o OUT]
  dump    --input FILE --product SHORT_NAME [--per-apid] [-o OUTDIR]
  aggr    --output FILE FILE...
  config  (emits default YAML to stdout)
  info    --input FILE
  extract --input FILE [--granule K]
`

func init() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run parses the global -l flag (which must precede the subcommand, per
// spec.md §6's `rdr [-l LEVEL] <command> ...`), dispatches to the named
// subcommand, and maps its error to a process exit code via
// rdrerr.Kind.ExitCode.
func run(args []string) int {
	globalSet := flag.NewFlagSet("rdr", flag.ContinueOnError)
	lvl := globalSet.String("l", "INFO", "log level")
	// flag.Parse stops at the first non-flag argument, leaving it and
	// everything after it in Args() -- exactly the subcommand and its
	// own arguments.
	if err := globalSet.Parse(args); err != nil {
		return 2
	}
	if globalSet.NArg() == 0 {
		flag.Usage()
		return 2
	}
	cmd, rest := globalSet.Arg(0), globalSet.Args()[1:]

	level, err := rdrlog.LevelFromString(*lvl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	log := rdrlog.New(os.Stderr)
	log.SetLevel(level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var runErr error
	switch cmd {
	case "create":
		runErr = cmdCreate(ctx, rest, log)
	case "dump":
		runErr = cmdDump(ctx, rest, log)
	case "aggr":
		runErr = cmdAggr(ctx, rest, log)
	case "config":
		runErr = cmdConfig(rest)
	case "info":
		runErr = cmdInfo(rest)
	case "extract":
		runErr = cmdExtract(rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		flag.Usage()
		return 2
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "rdr %s: %v\n", cmd, runErr)
		return rdrerr.KindOf(runErr).ExitCode()
	}
	return 0
}
