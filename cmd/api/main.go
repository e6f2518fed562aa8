package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"market-qa/internal/config"
	"market-qa/internal/query"
	"market-qa/internal/server"
	"market-qa/internal/sqlgen"
	"market-qa/internal/store"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main is the entry point for the API server. It wires the MySQL store,
// the optional SQL generator, and the HTTP server, and shuts down
// gracefully on SIGINT/SIGTERM.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Connect to MySQL; the store is the single shared dependency of both
	// query pipelines.
	st, err := store.Open(ctx, cfg.DSN(), logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to MySQL")
	}
	defer func() {
		_ = st.Close()
	}()

	// The SQL generator is optional: without an API key the server still
	// answers rule-based queries and reports llm_enabled=false on /health.
	var gen *sqlgen.Generator
	g, err := sqlgen.NewGenerator(sqlgen.GeneratorConfig{
		APIKey:    cfg.OpenRouterAPIKey,
		Model:     cfg.Model,
		MaxTokens: cfg.LLMMaxTokens,
		Logger:    logger,
	})
	switch {
	case errors.Is(err, sqlgen.ErrNotConfigured):
		logger.Warn("OPENROUTER_API_KEY not set, LLM query endpoint disabled")
	case err != nil:
		logger.WithError(err).Fatal("failed to create sql generator")
	default:
		gen = g
	}

	svc := query.NewService(st, generatorOrNil(gen), logger)

	h := &server.Handlers{
		Service:    svc,
		Store:      st,
		LLMEnabled: gen != nil,
		Model:      cfg.Model,
		LLMTimeout: cfg.LLMTimeout,
		DevMode:    cfg.DevMode,
		Logger:     logger,
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithField("addr", cfg.APIAddr).Info("api server starting")
	if err := srv.Start(); err != nil {
		// "http: Server closed" is expected during graceful shutdown
		if err.Error() == "http: Server closed" {
			return
		}
		logger.WithError(err).Fatal("api server failed")
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}
}

// generatorOrNil avoids storing a typed nil pointer in the service's
// interface field, which would defeat its nil check.
func generatorOrNil(g *sqlgen.Generator) query.SQLGenerator {
	if g == nil {
		return nil
	}
	return g
}
