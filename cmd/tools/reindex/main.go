// cmd/tools/reindex/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"property-browser/internal/app"
	"property-browser/internal/common/config"
	"property-browser/internal/common/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: configs/config.yaml lookup)")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall timeout")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if !cfg.UsesElasticsearch() {
		fmt.Fprintln(os.Stderr, "Error: backends.search_index is not set to elasticsearch")
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	application, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building application: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	start := time.Now()
	n, err := application.SearchIndex.Reindex(ctx)
	if err != nil {
		application.Close()
		fmt.Fprintf(os.Stderr, "Error reindexing: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Indexed %d properties into %q in %s\n", n, cfg.Search.Index, time.Since(start).Round(time.Millisecond))
}
