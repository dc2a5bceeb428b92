// Command research runs one research pipeline from the terminal and prints the report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/webscout/orchestrator/internal/app"
	"github.com/webscout/orchestrator/internal/config"
	"github.com/webscout/orchestrator/internal/logging"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config")
		question   = flag.String("q", "", "research question (or pass it as arguments)")
		asJSON     = flag.Bool("json", false, "print plan, sources and report as JSON")
		logLevel   = flag.String("log-level", "warn", "log level written to stderr")
	)
	flag.Parse()

	q := strings.TrimSpace(*question)
	if q == "" {
		q = strings.TrimSpace(strings.Join(flag.Args(), " "))
	}
	if q == "" {
		fmt.Fprintln(os.Stderr, "usage: research [-config path] [-json] -q \"question\"")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, _, err := logging.New(*logLevel, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := app.Build(cfg, logger).Pipeline.Run(ctx, q)
	if err != nil {
		logger.Error("Research failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "research failed: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		failures := make([]string, 0, len(res.RetrievalErrors))
		for _, e := range res.RetrievalErrors {
			failures = append(failures, e.Error())
		}
		planError := ""
		if res.PlanError != nil {
			planError = res.PlanError.Error()
		}
		_ = enc.Encode(map[string]any{
			"plan":             res.Plan,
			"plan_error":       planError,
			"outcome":          res.Outcome,
			"retrieved":        res.Retrieved,
			"retrieval_errors": failures,
			"sources":          res.Sources,
			"report":           res.Report,
		})
		return
	}
	fmt.Println(res.Report)
}
