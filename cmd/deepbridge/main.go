package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/deepbridge/deepbridge/pkg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		// Engine suites report through their exit code, which is passed
		// along verbatim
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
