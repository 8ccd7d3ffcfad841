// Command mapctl works with overlay corners from the shell: it orders and
// flips them, applies scale and rotation, exports the GeoJSON footprint,
// and tails map config events.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
