// Package cli parses the server command line and runs the server.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"strings"

	"go.uber.org/zap"

	"taskapi/internal/backend"
	"taskapi/internal/config"
	"taskapi/internal/exitcode"
	"taskapi/internal/logger"
	"taskapi/internal/metrics"
	"taskapi/internal/server"
)

// Version is the application version. Set at build time.
var Version = "0.1.0"

// Runner turns command-line arguments into a running server.
type Runner struct {
	open   backend.Opener
	listen func(network, addr string) (net.Listener, error)
}

// NewRunner creates a Runner that opens its store with open.
func NewRunner(open backend.Opener) *Runner {
	return &Runner{
		open:   open,
		listen: net.Listen,
	}
}

// Run parses args, serves until ctx is cancelled and returns the exit code.
func (r *Runner) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet(config.AppName, flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	var (
		configPath  string
		port        int
		apiVersion  int
		backendName string
		logLevel    string
		showVersion bool
		showHelp    bool
	)
	fs.StringVar(&configPath, "config", "", "")
	fs.IntVar(&port, "port", 0, "")
	fs.IntVar(&apiVersion, "api-version", 0, "")
	fs.StringVar(&backendName, "backend", "", "")
	fs.StringVar(&logLevel, "log-level", "", "")
	fs.BoolVar(&showVersion, "version", false, "")
	fs.BoolVar(&showHelp, "help", false, "")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprint(out, helpText)
			return exitcode.Success
		}
		errStr := err.Error()
		if strings.HasPrefix(errStr, "flag provided but not defined:") {
			flagName := strings.TrimPrefix(errStr, "flag provided but not defined: ")
			fmt.Fprintf(errOut, "error: unknown flag: %s\n", flagName)
			return exitcode.ConfigError
		}
		fmt.Fprintf(errOut, "error: %s\n", errStr)
		return exitcode.ConfigError
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", fs.Arg(0))
		return exitcode.ConfigError
	}

	if showHelp {
		fmt.Fprint(out, helpText)
		return exitcode.Success
	}
	if showVersion {
		fmt.Fprintf(out, "%s %s\n", config.AppName, Version)
		return exitcode.Success
	}

	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.ConfigError
	}

	// Flags override file and environment.
	if port != 0 {
		cfg.Port = port
	}
	if apiVersion != 0 {
		cfg.APIVersion = apiVersion
	}
	if backendName != "" {
		cfg.Store.Backend = backendName
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.ConfigError
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.ConfigError
	}
	defer log.Sync()

	return r.serve(ctx, cfg, log, errOut)
}

func (r *Runner) serve(ctx context.Context, cfg *config.Config, log *zap.Logger, errOut io.Writer) int {
	log.Info("Starting taskapi...",
		zap.Int("api_version", cfg.APIVersion),
		zap.String("backend", cfg.Store.Backend),
		zap.String("addr", cfg.Addr()),
		zap.Duration("store_timeout", cfg.Store.Timeout),
	)

	st, err := r.open(ctx, cfg, log)
	if err != nil {
		if errors.Is(err, backend.ErrCredentials) {
			fmt.Fprintf(errOut, "error: auth error: %s\n", err)
			log.Error("Failed to load credentials", zap.Error(err))
			return exitcode.CredentialsError
		}
		fmt.Fprintf(errOut, "error: backend error: %s\n", err)
		log.Error("Failed to open store", zap.Error(err))
		return exitcode.BackendError
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("Failed to close store", zap.Error(err))
		}
	}()

	m := metrics.New()
	router, err := server.NewRouter(cfg, m.InstrumentStore(st), log, m)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.ConfigError
	}

	ln, err := r.listen("tcp", cfg.Addr())
	if err != nil {
		fmt.Fprintf(errOut, "error: failed to listen on %s: %s\n", cfg.Addr(), err)
		log.Error("Failed to listen", zap.String("addr", cfg.Addr()), zap.Error(err))
		return exitcode.BackendError
	}

	srv := server.New(cfg.Addr(), router, log)
	if err := srv.Serve(ctx, ln); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		log.Error("HTTP server failed", zap.Error(err))
		return exitcode.BackendError
	}

	log.Info("taskapi shutdown complete")
	return exitcode.Success
}

const helpText = `Usage:
  taskapi [flags]

Flags:
  --config <file>       YAML config file (default $TASKAPI_CONFIG or config.yaml)
  --port <n>            Listen port (default 3000 for v1, 5000 for v2)
  --api-version <1|2>   Route set and response format
  --backend <name>      firestore, redis, postgres or memory
  --log-level <level>   debug, info, warn or error
  --version             Print version
  --help                Print usage

Flags override the config file and environment variables.
`
