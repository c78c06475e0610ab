// Command agriyield serves the cereal yield dashboard and exposes its
// statistics, exports and predictions on the command line.
package main

import (
	"fmt"
	"os"

	"github.com/YuminosukeSato/agriyield/pkg/errors"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "agriyield:", errors.UserMessage(err))
		os.Exit(1)
	}
}
