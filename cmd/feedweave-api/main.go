// @title         Feedweave API
// @version       0.1.0
// @description   Composed activity feed sessions with optimistic mutations

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedweave/internal/platform/config"
	"feedweave/internal/platform/logger"
	phttp "feedweave/internal/platform/net/http"
	"feedweave/internal/platform/store"

	"feedweave/internal/adapters/upstream/httpapi"
	"feedweave/internal/adapters/upstream/pgsource"
	"feedweave/internal/modkit/httpkit"
	"feedweave/internal/modkit/module"
	"feedweave/internal/modkit/repokit"
	"feedweave/internal/services/api"
	"feedweave/internal/services/feed/domain"
	feedmod "feedweave/internal/services/feed/module"

	"github.com/joho/godotenv"
)

func main() {
	// a missing .env is fine, the process env still applies
	_ = godotenv.Load()
	logger.Init(logger.FromEnv())
	l := logger.Get()

	root := config.New()
	apiCfg := root.Prefix("FEEDWEAVE_API_")
	mode := root.MayEnum("FEED_UPSTREAM_MODE", "http", "http", "pg")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		st       *store.Store
		upstream domain.Upstream
		tokens   httpkit.TokenFunc
	)
	switch mode {
	case "pg":
		pgCfg := root.Prefix("SERVICE_PGSQL_")
		pg := store.PGFromConfig(pgCfg)
		if !pg.Enabled {
			l.Panic().Msg("SERVICE_PGSQL_DBURL is required with FEED_UPSTREAM_MODE=pg")
		}
		if pgCfg.MayBool("MIGRATE", true) {
			if err := pgsource.Migrate(pg.URL, l); err != nil {
				l.Panic().Err(err).Msg("migrations failed")
			}
		}

		var err error
		st, err = store.Open(ctx, store.Config{AppName: "feedweave-api", PG: pg}, store.WithLogger(*l))
		if err != nil {
			l.Panic().Err(err).Msg("store.Open failed")
		}
		defer func() {
			if err := st.Close(); err != nil {
				l.Error().Err(err).Msg("failed to close store")
			}
		}()
		repokit.MustGuard(ctx, st)

		// every feed transaction gets a bounded statement time
		db := repokit.WithBeginHooks(st.PG, repokit.StatementTimeout(pgCfg.MayDuration("STATEMENT_TIMEOUT", 5*time.Second)))
		upstream = pgsource.New(db)
		tokens = httpkit.SubjectToken
	default:
		upstream = httpapi.NewClient(httpapi.OptionsFromConfig(root))
		tokens = httpkit.OpaqueToken
	}

	// http server (reads FEEDWEAVE_API_PORT / FEEDWEAVE_API_ADDR)
	srv := phttp.NewServer(apiCfg)

	api.Mount(
		srv.Router(),
		api.Options{
			Config:         root,
			Store:          st,
			Logger:         l,
			Upstream:       upstream,
			UpstreamMode:   mode,
			Auth:           httpkit.NewPortFunc(tokens),
			CORSOrigins:    apiCfg.MayCSV("CORS_ORIGINS", nil),
			SlowRequest:    apiCfg.MayDuration("SLOW_REQUEST", 500*time.Millisecond),
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", false),
		},
	)

	// idle session sweeper
	if ports, ok := module.PortsAs[feedmod.Ports]("feed"); ok && ports.Janitor != nil {
		go ports.Janitor.Janitor(ctx)
	} else {
		l.Warn().Msg("feed janitor not registered, idle sessions will not expire")
	}

	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
	l.Info().Msg("bye")
}
