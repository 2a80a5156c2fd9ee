package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/odyssey-erp/finreports/cmd/reportctl/cli"
	"github.com/odyssey-erp/finreports/internal/app"
	"github.com/odyssey-erp/finreports/internal/platform/cache"
)

const usage = `usage: reportctl <command> [flags]

commands:
  normalize -type T [-file F] [-compact]   print the normalized report for a raw payload
  warmup [TYPE...]                          enqueue a reports:warmup job
  prune                                     enqueue a reports:snapshots_prune job
  bump-cache                                invalidate every cached report
  queue                                     print default queue statistics
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stderr, usage)
		return 1
	}
	switch args[0] {
	case "normalize":
		return runNormalize(args[1:], stdout, stderr)
	case "warmup", "prune":
		return runTrigger(ctx, args[0], args[1:], stdout, stderr)
	case "bump-cache":
		return runBumpCache(ctx, stdout, stderr)
	case "queue":
		return runQueue(ctx, stdout, stderr)
	case "-h", "--help", "help":
		_, _ = fmt.Fprint(stdout, usage)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "reportctl: unknown command %q\n\n%s", args[0], usage)
		return 1
	}
}

func runNormalize(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("normalize", flag.ContinueOnError)
	fs.SetOutput(stderr)
	reportType := fs.String("type", "", "report type, e.g. trial-balance or PROFIT_LOSS")
	file := fs.String("file", "-", "payload file, - for stdin")
	compact := fs.Bool("compact", false, "print compact JSON")
	locale := fs.String("locale", envOr("REPORTS_LOCALE", "en"), "label locale")
	symbol := fs.String("currency", os.Getenv("REPORTS_CURRENCY_SYMBOL"), "currency symbol")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	cfg := &app.Config{Locale: *locale, CurrencySymbol: *symbol, DateLayout: envOr("REPORTS_DATE_LAYOUT", "02 Jan 2006")}
	return cli.NormalizeCommand(cli.NormalizeOptions{
		Type:      *reportType,
		File:      *file,
		Compact:   *compact,
		Formatter: cfg.Formatter(),
		Stdout:    stdout,
		Stderr:    stderr,
	})
}

func runTrigger(ctx context.Context, name string, args []string, stdout, stderr io.Writer) int {
	jobsCLI, err := cli.NewJobsCLI(redisAddr())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return 1
	}
	defer func() { _ = jobsCLI.Close() }()
	info, err := jobsCLI.Trigger(ctx, name, args...)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	return 0
}

func runBumpCache(ctx context.Context, stdout, stderr io.Writer) int {
	client, err := cache.New(ctx, redisAddr())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "bump-cache: %v\n", err)
		return 1
	}
	defer func() { _ = client.Close() }()
	return cli.BumpCacheCommand(ctx, client, stdout, stderr)
}

func runQueue(ctx context.Context, stdout, stderr io.Writer) int {
	jobsCLI, err := cli.NewJobsCLI(redisAddr())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "queue: %v\n", err)
		return 1
	}
	defer func() { _ = jobsCLI.Close() }()
	stats, err := jobsCLI.InspectQueue(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "queue: %v\n", err)
		return 1
	}
	if err := json.NewEncoder(stdout).Encode(stats); err != nil {
		_, _ = fmt.Fprintf(stderr, "queue: %v\n", err)
		return 1
	}
	return 0
}

func redisAddr() string {
	return envOr("REDIS_ADDR", "127.0.0.1:6379")
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
