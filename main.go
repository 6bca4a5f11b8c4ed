package main

import (
	"context"
	"fmt"
	"os"

	"github.com/androsik2006/radmon/cmd"
	"github.com/androsik2006/radmon/internal/buildinfo"
	"github.com/androsik2006/radmon/internal/config"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=...".
var (
	version   = "dev"
	buildDate = ""
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	ctx := config.NewContext(buildinfo.NewContext(version, buildDate, ""))
	defer func() { _ = ctx.Close() }()

	rootCmd := cmd.RootCommand(ctx)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
