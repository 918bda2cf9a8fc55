package main

import (
	"context"
	"os"

	"github.com/desertthunder/playlistr/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	if err := runner.App().Run(context.Background(), os.Args); err != nil {
		logger.Debug("application error", "error", err)
		runner.writeErr(err)
		os.Exit(1)
	}
}
