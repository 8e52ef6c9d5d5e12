package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/matheus3301/schoolchat/internal/mockapi"
	"go.uber.org/zap"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "listen address")
	secret := flag.String("secret", envOr("SCHOOLMOCK_SECRET", "schoolmock-dev-secret"), "HS256 signing secret")
	printTokens := flag.Bool("print-tokens", true, "print a token for every demo user on start")
	verbose := flag.Bool("v", false, "log every request")
	flag.Parse()

	cfg := zap.NewDevelopmentConfig()
	if !*verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	srv := mockapi.New([]byte(*secret), mockapi.Demo(time.Now()), logger)
	if *printTokens {
		printDemoTokens(srv)
	}

	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("mock school API listening", zap.String("addr", *addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	srv.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func printDemoTokens(srv *mockapi.Server) {
	users := []string{mockapi.DemoTeacher, mockapi.DemoPrincipal, mockapi.DemoParentA, mockapi.DemoParentB, mockapi.DemoParentC}
	sort.Strings(users)
	for _, id := range users {
		tok, err := srv.TokenFor(id)
		if err != nil {
			continue
		}
		fmt.Printf("%-14s %s\n", id, tok)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
