package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/schoolchat/internal/app"
	"github.com/matheus3301/schoolchat/internal/bus"
	"github.com/matheus3301/schoolchat/internal/chat"
	"github.com/matheus3301/schoolchat/internal/lock"
	"github.com/matheus3301/schoolchat/internal/profile"
	"github.com/matheus3301/schoolchat/internal/status"
	"github.com/matheus3301/schoolchat/internal/tui"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	openFlag := flag.String("open", "", "contact id to open on start")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	profileLock, err := lock.Acquire(profile.Dir(profileName), "schoolchat")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	exit := func(code int) {
		_ = profileLock.Release()
		os.Exit(code)
	}

	var (
		session *chat.Session
		events  *bus.Bus
		machine *status.Machine
		logger  *zap.Logger
	)
	fxApp := fx.New(
		app.Module(app.Params{Profile: profileName}),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
		fx.Populate(&session, &events, &machine, &logger),
	)
	if err := fxApp.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		exit(1)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := fxApp.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		exit(1)
	}

	runErr := tui.New(session, events, machine, logger, tui.Options{
		Profile:     profileName,
		OpenContact: *openFlag,
	}).Run()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := fxApp.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		exit(1)
	}
	_ = profileLock.Release()
}
