package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"policyqa/internal/server"
)

func runServe(args []string, s Streams) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(s.Err)
	var common commonFlags
	common.register(fs)
	host := fs.String("host", "", "Listen host (overrides server.host)")
	port := fs.Int("port", 0, "Listen port (overrides server.port)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, &common)
	if err != nil {
		fmt.Fprintf(s.Err, "serve: %v\n", err)
		return ExitError
	}
	defer a.logger.Sync()

	cfg := a.cfg.Server
	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}
	srv := server.NewServer(a.pipeline, cfg, a.logger, a.registry)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("server stopped", zap.Error(err))
			return ExitError
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			a.logger.Error("shutdown", zap.Error(err))
			return ExitError
		}
	}
	return ExitOK
}
