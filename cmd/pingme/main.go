package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/matheus3301/pingme/internal/app"
	"github.com/matheus3301/pingme/internal/client"
	"github.com/matheus3301/pingme/internal/config"
	"github.com/matheus3301/pingme/internal/lock"
	"github.com/matheus3301/pingme/internal/profile"
	"github.com/matheus3301/pingme/internal/tui"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	flag.Parse()

	name := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var (
		c      *client.Client
		cfg    *config.Config
		logger *zap.Logger
	)
	fxApp := fx.New(
		app.Module(app.Params{Profile: name, Exclusive: true}),
		fx.Populate(&c, &cfg, &logger),
		fx.NopLogger,
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := fxApp.Start(startCtx); err != nil {
		var held *lock.HeldError
		if errors.As(err, &held) {
			fmt.Fprintf(os.Stderr, "profile %q is already open in another pingme (PID %d)\n", name, held.PID)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}

	ui := tui.NewApp(c, tui.Options{Profile: name, Identity: identityHint(cfg)}, logger)
	runErr := ui.Run()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := fxApp.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		os.Exit(1)
	}
}

func identityHint(cfg *config.Config) string {
	id := cfg.Identity
	switch {
	case id.Provider == config.ProviderJWT:
		return "the holder of " + id.TokenFile
	case id.DisplayName != "":
		return id.DisplayName
	default:
		return id.UID
	}
}
