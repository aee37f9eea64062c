// Command pbtreectl builds, inspects, and queries PBTree files from the
// shell: build assembles one from newline-delimited key/value input, get
// and scan serve point and prefix lookups, levels surfaces the index
// structure for debugging, and dump exports every entry as zstd-compressed
// tab-separated lines.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
