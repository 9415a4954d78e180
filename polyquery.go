// Package polyquery wires the backends, tool registry, and transports into
// a runnable server.
package polyquery

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/k0kubun/pp/v3"
	"go.uber.org/zap"

	"github.com/polyquery/polyquery/audit"
	"github.com/polyquery/polyquery/database"
	"github.com/polyquery/polyquery/mcp"
	"github.com/polyquery/polyquery/oracle"
	"github.com/polyquery/polyquery/rest"
	"github.com/polyquery/polyquery/search"
	"github.com/polyquery/polyquery/tools"
	"github.com/polyquery/polyquery/util"
)

const serverName = "polyquery"

// Options are the command-line level settings passed down by main.
type Options struct {
	ConfigFile string
	WebSocket  bool
	Addr       string
	Seed       bool
	APIKey     string
	Debug      bool
	Version    string
}

// Run resolves configuration, builds the engine, and serves until the
// process receives SIGINT or SIGTERM.
func Run(options *Options) error {
	logger := util.NewLogger()
	defer logger.Sync()

	config, err := LoadConfig(options.ConfigFile)
	if err != nil {
		return err
	}
	if options.APIKey != "" {
		config.APIKey = options.APIKey
	}

	if options.Debug {
		// stdout carries the stdio transport, so diagnostics go to stderr.
		printer := pp.New()
		printer.SetOutput(os.Stderr)
		printer.Println(config)
	}

	db, err := database.NewDatabase(database.Config{DbPath: config.DbPath})
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if options.Seed {
		if err := db.Seed(ctx); err != nil {
			return err
		}
		logger.Info("store seeded", zap.String("db_path", config.DbPath))
	}

	pool := rest.NewPool(time.Duration(config.CacheTTLSeconds)*time.Second, logger)
	defer pool.Close()

	searcher := search.NewSearcher(db, pool, config.APIBaseURL, config.APIKey, config.FilePaths, logger)

	registry := mcp.NewRegistry()
	tools.RegisterAll(registry, &tools.Deps{
		DB:        db,
		Pool:      pool,
		Searcher:  searcher,
		Oracle:    oracle.FromEnv(config.Oracle),
		APIBase:   config.APIBaseURL,
		APIKey:    config.APIKey,
		FilePaths: config.FilePaths,
		Logger:    logger,
	})

	engine := mcp.NewEngine(serverName, options.Version, registry, db, audit.New(config.AuditLogPath), logger)

	if options.WebSocket {
		server := mcp.NewWebsocketServer(engine, options.Addr, logger)
		return server.Start(ctx)
	}

	logger.Info("serving over stdio")
	return engine.ServeStdio(ctx, os.Stdin, os.Stdout)
}
