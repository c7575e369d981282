/*************************************************************************
 * Copyright 2026 rdr contributors
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package main

import (
	"fmt"
	"os"

	"github.com/bmflynn/rdr/rdrconfig"
	"github.com/bmflynn/rdr/rdrerr"
)

func cmdConfig(_ []string) error {
	b, err := rdrconfig.Default().ToYAML()
	if err != nil {
		return rdrerr.Wrap(rdrerr.Config, "serializing default config", err)
	}
	fmt.Fprint(os.Stdout, string(b))
	return nil
}
