package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"market-qa/internal/config"
	"market-qa/internal/query"
	"market-qa/internal/sqlgen"
	"market-qa/internal/store"
)

func main() {
	// Flags
	queryFlag := flag.String("q", "", "Run a single natural language query and exit")
	llmFlag := flag.Bool("llm", false, "Use the LLM pipeline instead of the rule-based resolver")
	modelFlag := flag.String("model", "", "OpenRouter model name (overrides OPENROUTER_MODEL)")
	flag.Parse()

	// Logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.WarnLevel)

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using system environment variables")
	}

	// Config
	cfg := config.Load()
	if *modelFlag != "" {
		cfg.Model = *modelFlag
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	// Context + signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nshutting down")
		cancel()
	}()

	st, err := store.Open(ctx, cfg.DSN(), logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to MySQL")
	}
	defer st.Close()

	var gen query.SQLGenerator
	if *llmFlag {
		g, err := sqlgen.NewGenerator(sqlgen.GeneratorConfig{
			APIKey:    cfg.OpenRouterAPIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.LLMMaxTokens,
			Logger:    logger,
		})
		if errors.Is(err, sqlgen.ErrNotConfigured) {
			logger.Fatal("OPENROUTER_API_KEY is required for -llm")
		}
		if err != nil {
			logger.WithError(err).Fatal("failed to create sql generator")
		}
		gen = g
	}

	svc := query.NewService(st, gen, logger)

	// Single-shot mode
	if *queryFlag != "" {
		if err := runSingle(ctx, svc, *queryFlag, *llmFlag, cfg); err != nil {
			logger.WithError(err).Fatal("query failed")
		}
		return
	}

	// REPL mode
	runREPL(ctx, svc, *llmFlag, cfg)
}

func ask(ctx context.Context, svc *query.Service, q string, useLLM bool, cfg *config.Config) (*query.Result, error) {
	if useLLM {
		llmCtx, cancel := context.WithTimeout(ctx, cfg.LLMTimeout)
		defer cancel()
		res, err := svc.AskLLM(llmCtx, q)
		// Gate rejections and store errors still carry a printable result.
		if err != nil && res != nil {
			return res, nil
		}
		return res, err
	}

	res, err := svc.AskRules(ctx, q)
	if res != nil {
		return res, nil
	}
	return nil, err
}

func printResult(res *query.Result) {
	if res.SQL != "" {
		fmt.Printf("SQL:\n%s\n\n", res.SQL)
	}
	if res.Error != "" {
		fmt.Println("error:", res.Error)
	}
	if res.Message != "" {
		fmt.Println(res.Message)
	}
	if len(res.Rows) > 0 {
		out, err := json.MarshalIndent(res.Rows, "", "  ")
		if err == nil {
			fmt.Println(string(out))
		}
	}
	fmt.Println()
}

func runSingle(ctx context.Context, svc *query.Service, q string, useLLM bool, cfg *config.Config) error {
	res, err := ask(ctx, svc, q, useLLM, cfg)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func runREPL(ctx context.Context, svc *query.Service, useLLM bool, cfg *config.Config) {
	mode := "rule-based"
	if useLLM {
		mode = "LLM"
	}
	fmt.Printf("Market data Q&A (%s pipeline)\n", mode)
	fmt.Println("Type your question and press Enter. Empty line to exit.")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("> ")
		q, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("error reading input:", err)
			return
		}
		q = strings.TrimSpace(q)
		if q == "" {
			fmt.Println("bye")
			return
		}

		res, err := ask(ctx, svc, q, useLLM, cfg)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		printResult(res)
	}
}
