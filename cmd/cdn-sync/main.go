package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/mediasync/internal/app"
	"github.com/andresuchdata/mediasync/internal/cdnsync"
	"github.com/andresuchdata/mediasync/internal/config"
	"github.com/andresuchdata/mediasync/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// loadEnv is replaced in tests.
var loadEnv = config.Load

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	logger.SetOutput(zerolog.ConsoleWriter{Out: stderr, TimeFormat: "2006-01-02 15:04:05"})

	cfg := loadEnv()
	logger.SetLevel(cfg.Log.Level)

	cliApp := &cli.App{
		Name:           "cdn-sync",
		Usage:          "Upload a local media directory to the bucket and invalidate the CDN",
		Writer:         stdout,
		ErrWriter:      stderr,
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Directory to publish",
				Value: cfg.Sync.SourceDir,
			},
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "Key prefix inside the bucket",
				Value: cfg.Sync.KeyPrefix,
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Maximum parallel uploads (0 means unbounded)",
				Value: cfg.Sync.Concurrency,
			},
			&cli.StringSliceFlag{
				Name:  "ext",
				Usage: "Only upload files with these extensions (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "no-invalidate",
				Usage: "Skip the CloudFront invalidation",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "List what would be uploaded without uploading",
			},
		},
		Action: func(c *cli.Context) error {
			return runSync(c, cfg)
		},
	}

	if err := cliApp.RunContext(ctx, args); err != nil {
		logger.Log.Error().Err(err).Msg("cdn sync failed")
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func runSync(c *cli.Context, cfg *config.Config) error {
	if c.Int("concurrency") < 0 {
		return fmt.Errorf("--concurrency must not be negative")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	invalidate := !c.Bool("no-invalidate") && !c.Bool("dry-run")
	deps, err := app.Build(c.Context, cfg, app.Options{Storage: true, CDN: invalidate})
	if err != nil {
		return err
	}
	defer deps.Close()

	if invalidate && deps.Invalidator == nil {
		logger.Log.Warn().Msg("CLOUDFRONT_DISTRIBUTION_ID not set, skipping invalidation")
	}

	result, err := cdnsync.NewSyncer(deps.Store, deps.Invalidator, c.Int("concurrency")).Sync(c.Context, cdnsync.Options{
		Dir:        c.String("dir"),
		KeyPrefix:  c.String("prefix"),
		Extensions: c.StringSlice("ext"),
		Invalidate: invalidate,
		DryRun:     c.Bool("dry-run"),
	})
	if err != nil {
		return err
	}

	if c.Bool("dry-run") {
		for _, key := range result.Uploaded {
			fmt.Fprintln(c.App.Writer, key)
		}
		fmt.Fprintf(c.App.Writer, "%d file(s) would be uploaded.\n", len(result.Uploaded))
		return nil
	}

	fmt.Fprintf(c.App.Writer, "Uploaded %d file(s), %s.\n", len(result.Uploaded), humanize.Bytes(uint64(result.Bytes)))
	if result.InvalidationID != "" {
		fmt.Fprintf(c.App.Writer, "CDN invalidation %s created.\n", result.InvalidationID)
	}
	return nil
}
