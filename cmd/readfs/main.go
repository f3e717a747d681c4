/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Mar 20 12:01:10 2019 mstenber
 * Last modified: Wed Mar 20 12:01:40 2019 mstenber
 * Edit time:     0 min
 *
 */

// readfs builds, stores, inspects, serves and mounts read-only
// file system images.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
