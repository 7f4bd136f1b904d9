package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"itpulse/internal/assist"
	"itpulse/internal/auth"
	"itpulse/internal/metrics"
	"itpulse/internal/prefs"
	"itpulse/internal/seed"
	"itpulse/internal/session"
	"itpulse/internal/web"
	"itpulse/pkg/database"
	"itpulse/pkg/models"
	"itpulse/pkg/utils"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "api-server",
		Usage: "Serve the IT Pulse news app",
		Description: `Serves the JSON API and the single page app.

		Settings come from ITPULSE_* environment variables, run
		"api-server config" to list them. Flags override them.`,
		Commands: []*cli.Command{
			serveCmd(),
			configCmd(),
		},
		Action: func(ctx *cli.Context) error {
			return serve(ctx)
		},
		Flags: serveFlags(),
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "addr", Aliases: []string{"a"}, Usage: "Listen address"},
		&cli.StringFlag{Name: "static", Usage: "Directory of the built single page app"},
		&cli.StringFlag{Name: "seed", Usage: "TOML article catalogue sessions start from"},
	}
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Start the HTTP server",
		Flags:  serveFlags(),
		Action: serve,
	}
}

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "List the environment variables the server reads",
		Action: func(ctx *cli.Context) error {
			var cfg utils.Config
			cfg.OutputUsage(ctx.App.Writer)
			return nil
		},
	}
}

func loadConfig(ctx *cli.Context) (*utils.Config, error) {
	cfg := &utils.Config{}
	if err := cfg.PopulateFromEnv(); err != nil {
		cfg.OutputUsage(ctx.App.ErrWriter)
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if v := ctx.String("addr"); v != "" {
		cfg.Addr = v
	}
	if v := ctx.String("static"); v != "" {
		cfg.StaticDir = v
	}
	if v := ctx.String("seed"); v != "" {
		cfg.SeedFile = v
	}
	return cfg, nil
}

func loadCatalogue(path string) ([]models.Article, error) {
	if path == "" {
		return seed.Load()
	}
	return seed.LoadFile(path)
}

func serve(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if err := cfg.SetupLogging(); err != nil {
		return err
	}
	gin.SetMode(gin.ReleaseMode)

	dbCfg := cfg.Database()
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("db migrate failed: %w", err)
	}

	catalogue, err := loadCatalogue(cfg.SeedFile)
	if err != nil {
		return err
	}

	if cfg.GeminiAPIKey == "" {
		log.Warn("ITPULSE_GEMINI_API_KEY is not set, AI assist will report a credential error")
	}
	improver := metrics.InstrumentImprover(assist.NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiModel, cfg.GeminiAPIKey))

	sessions := session.NewManager(catalogue, session.WithImprover(improver))
	metrics.TrackSessions(sessions)

	router := web.NewRouter(web.Deps{
		Sessions: sessions,
		Tokens: auth.TokenService{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Duration: cfg.JWTTTL,
		},
		Prefs:     prefs.NewService(prefs.NewRepo(db)),
		DB:        db,
		StaticDir: cfg.StaticDir,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":     cfg.Addr,
			"db":       dbCfg.Path,
			"static":   cfg.StaticDir,
			"articles": len(catalogue),
		}).Info("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("Shutdown signal received")
	case runErr = <-errCh:
		log.WithError(runErr).Error("Server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP shutdown error")
	}
	log.Info("Server stopped")
	return runErr
}
