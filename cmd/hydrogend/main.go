// Command hydrogend is the Database Queue Manager daemon: it loads a
// YAML config, wires every subsystem through internal/runtime, and runs
// until it receives SIGINT/SIGTERM.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hydrogen-project/hydrogen/internal/runtime"
)

func main() {
	configPath := flag.String("config", "configs/hydrogen.yaml", "path to configuration file")
	apiPort := flag.Int("api-port", 8089, "port for the status/readiness/metrics HTTP server")
	flag.Parse()

	slog.Info("hydrogen starting")

	rt, err := runtime.New(runtime.Options{ConfigPath: *configPath, APIPort: *apiPort})
	if err != nil {
		log.Fatalf("failed to initialize runtime: %v", err)
	}

	if err := rt.Start(); err != nil {
		log.Fatalf("failed to start runtime: %v", err)
	}
	slog.Info("hydrogen ready", "config", *configPath, "api_port", *apiPort)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig.String())

	if err := rt.Stop(); err != nil {
		log.Fatalf("error during shutdown: %v", err)
	}
	slog.Info("hydrogen stopped")
}
