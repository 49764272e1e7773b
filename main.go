package main

import (
	"context"
	"fmt"
	"os"

	"github.com/km-arc/pibox/cmd"
)

// Version is overridden by ldflags.
var Version = "dev"

func main() {
	if err := cmd.NewRootCommand(Version).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
