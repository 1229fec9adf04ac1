package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	theme "github.com/OurWorldInData/owid-theme"
	"github.com/OurWorldInData/owid-theme/grapher"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "refresh-charts":
		if err := runRefreshCharts(logger, os.Args[2:]); err != nil {
			logger.Error("refresh-charts failed", "err", err)
			os.Exit(1)
		}
	case "preview":
		if err := runPreview(logger); err != nil {
			logger.Error("preview failed", "err", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("owid-theme %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// runRefreshCharts reconciles chart exports for the URLs given as
// arguments, or read one per line from stdin when no arguments are
// given.
func runRefreshCharts(logger *slog.Logger, urls []string) error {
	cfg, err := theme.LoadConfig()
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				urls = append(urls, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read urls from stdin: %w", err)
		}
	}
	if len(urls) == 0 {
		return fmt.Errorf("no chart urls given")
	}

	charts, err := grapher.Open(cfg.DatabaseDriver, cfg.GrapherDSN, logger)
	if err != nil {
		return err
	}
	defer charts.Close()

	reconciler := grapher.NewReconciler(charts, cfg.RenderToolRoot, cfg.ExportDir(), logger)
	return reconciler.Reconcile(urls)
}

func runPreview(logger *slog.Logger) error {
	cfg, err := theme.LoadConfig()
	if err != nil {
		return err
	}
	return theme.Preview(cfg, logger)
}

func printUsage() {
	fmt.Println(`owid-theme - read-side data tooling for the OWID static site

Usage:
  owid-theme <command> [arguments]

Commands:
  refresh-charts [url ...]  Re-render stale chart exports (reads URLs
                            from stdin when none are given)
  preview                   Serve the baked site directory locally
  version                   Print the owid-theme version
  help                      Show this help message

Configuration is read from the environment: OWID_DB_DRIVER,
OWID_WORDPRESS_DSN, OWID_GRAPHER_DSN, OWID_RENDER_TOOL_ROOT,
OWID_BAKED_OUTPUT_ROOT, OWID_PREVIEW_ADDR.`)
}
