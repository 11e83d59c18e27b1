package main

import (
	"errors"
	"os"

	"github.com/harrison/accudoc/internal/cmd"
	"github.com/harrison/accudoc/internal/logger"
)

func main() {
	rootCmd := cmd.NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, cmd.ErrDoctestsFailed) {
			logger.NewReporter(os.Stderr, false).Error(err)
		}
		os.Exit(1)
	}
}
