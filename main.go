package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/genrun/genrun/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		// A wrapped child's nonzero status is not our diagnostic to print.
		var exitErr *cmd.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "genrun: %v\n", err)
		}
		os.Exit(cmd.ExitCode(err))
	}
}
