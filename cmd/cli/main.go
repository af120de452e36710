package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/de-tools/site-warden/pkg/runtime/terminal"
	"github.com/de-tools/site-warden/pkg/runtime/terminal/commands"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	exitFatal   = 1
	exitPartial = 2
)

func main() {
	// Optional; credentials may come from the environment instead of the
	// profiles file.
	_ = godotenv.Load()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	cli := terminal.NewCLI(terminal.Options{
		Output: os.Stdout,
	})

	if err := cli.Execute(ctx); err != nil {
		if errors.Is(err, commands.ErrPartialRun) {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			os.Exit(exitPartial)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFatal)
	}
}
