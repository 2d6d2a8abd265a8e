package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/agentmux/agentmux/src/agentmux/app"
	"go.uber.org/fx"
)

func opts() fx.Option {
	return fx.Options(
		app.Module,
	)
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
