package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nav-avoid-core/flagservice"
	"nav-avoid-core/utils"
)

func main() {
	var (
		addr      = flag.String("addr", ":8765", "Listen address")
		flagsPath = flag.String("flags", "config/flags.json", "JSON array of flags, one per agent")
		logLevel  = flag.String("log", "info", "trace|debug|info|warn|error|critical")
	)
	flag.Parse()

	log := utils.NewLogger(os.Stdout, utils.ParseLogLevel(*logLevel))
	defer log.Close()

	flags, err := flagservice.LoadFlags(*flagsPath)
	if err != nil {
		log.Critical("Startup failed: %v", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/distance", flagservice.NewHandler(flags, log))
	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("Shutdown: %v", err)
		}
	}()

	log.Info("Serving %d flags on %s/distance", len(flags), *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Critical("Serve failed: %v", err)
		os.Exit(1)
	}
	log.Info("Stopped")
}
