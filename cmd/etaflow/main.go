// Command etaflow serves and runs delivery-time estimates.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// A failed run has already printed its result.
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "etaflow:", err)
		}
		os.Exit(1)
	}
}
