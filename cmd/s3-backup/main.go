package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/mediasync/internal/app"
	"github.com/andresuchdata/mediasync/internal/backup"
	"github.com/andresuchdata/mediasync/internal/config"
	"github.com/andresuchdata/mediasync/internal/domain"
	"github.com/andresuchdata/mediasync/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	logger.SetOutput(zerolog.ConsoleWriter{Out: stderr, TimeFormat: "2006-01-02 15:04:05"})

	if err := newApp(stdout, stderr).RunContext(ctx, args); err != nil {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			if msg := exitErr.Error(); msg != "" {
				fmt.Fprintln(stderr, msg)
			}
			return exitErr.ExitCode()
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:           "s3-backup",
		Usage:          "Back up a media bucket to local snapshots and restore them",
		ArgsUsage:      "<command> [arguments]",
		Writer:         stdout,
		ErrWriter:      stderr,
		ExitErrHandler: func(*cli.Context, error) {},
		Action:         usage,
		Commands: []*cli.Command{
			{
				Name:      "backup",
				Usage:     "Download the bucket into a new snapshot under the backups root",
				ArgsUsage: "[dir]",
				Action:    runBackup,
			},
			{
				Name:      "restore",
				Aliases:   []string{"upload"},
				Usage:     "Upload a snapshot directory back to the bucket",
				ArgsUsage: "<dir>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "overwrite",
						Aliases: []string{"f"},
						Usage:   "Replace objects that already exist in the bucket",
					},
				},
				Action: runRestore,
			},
			{
				Name:      "list",
				Usage:     "List snapshots, or the files recorded in one snapshot",
				ArgsUsage: "[dir]",
				Action:    runList,
			},
			{
				Name:      "cleanup",
				Usage:     "Delete snapshots beyond S3_MAX_BACKUPS",
				ArgsUsage: "[dir]",
				Action:    runCleanup,
			},
		},
	}
}

// usage handles a missing or unknown command.
func usage(c *cli.Context) error {
	if c.Args().Present() {
		fmt.Fprintf(c.App.ErrWriter, "unknown command %q\n\n", c.Args().First())
	}
	cli.HelpPrinter(c.App.ErrWriter, cli.AppHelpTemplate, c.App)
	return cli.Exit("", 1)
}

// loadEnv is replaced in tests.
var loadEnv = config.Load

func loadConfig(requireStorage bool) (*config.Config, error) {
	cfg := loadEnv()
	logger.SetLevel(cfg.Log.Level)
	if requireStorage {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}

func rootDir(c *cli.Context, cfg *config.Config) string {
	if dir := c.Args().First(); dir != "" {
		return dir
	}
	return cfg.Backup.Root
}

func runBackup(c *cli.Context) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	deps, err := app.Build(c.Context, cfg, app.Options{Storage: true, Lock: true, Runs: true})
	if err != nil {
		return err
	}
	defer deps.Close()

	report, err := deps.BackupService(cfg).Backup(c.Context, rootDir(c, cfg))
	out := c.App.Writer
	if err != nil {
		if report.Result.Total() > 0 {
			printResult(out, report.Result)
		}
		return err
	}

	switch {
	case !report.Changed:
		fmt.Fprintln(out, "No changes since the last backup.")
	default:
		fmt.Fprintf(out, "Backup written to %s: %d files, %s\n",
			report.Dir, report.Snapshot.TotalFiles, humanize.Bytes(uint64(report.Snapshot.TotalSize)))
		printResult(out, report.Result)
		if report.Pruned > 0 {
			fmt.Fprintf(out, "Removed %d old backup(s).\n", report.Pruned)
		}
	}

	if report.Result.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d file(s) failed to download", report.Result.Failed), 1)
	}
	return nil
}

func runRestore(c *cli.Context) error {
	dir, overwrite := restoreArgs(c)
	if dir == "" {
		fmt.Fprintln(c.App.ErrWriter, "restore requires a backup directory")
		cli.HelpPrinter(c.App.ErrWriter, cli.CommandHelpTemplate, c.Command)
		return cli.Exit("", 1)
	}

	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	deps, err := app.Build(c.Context, cfg, app.Options{Storage: true, CDN: true, Lock: true, Runs: true})
	if err != nil {
		return err
	}
	defer deps.Close()

	report, err := deps.BackupService(cfg).Restore(c.Context, dir, overwrite)
	out := c.App.Writer
	printResult(out, report.Result)
	if report.InvalidationID != "" {
		fmt.Fprintf(out, "CDN invalidation %s created.\n", report.InvalidationID)
	}
	if err != nil {
		return err
	}
	if report.Result.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d file(s) failed to upload", report.Result.Failed), 1)
	}
	return nil
}

// restoreArgs accepts the overwrite flag on either side of the directory.
func restoreArgs(c *cli.Context) (string, bool) {
	overwrite := c.Bool("overwrite")
	var dir string
	for _, arg := range c.Args().Slice() {
		switch arg {
		case "--overwrite", "-overwrite", "-f", "--f":
			overwrite = true
		default:
			if dir == "" {
				dir = arg
			}
		}
	}
	return dir, overwrite
}

func runList(c *cli.Context) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	out := c.App.Writer

	if dir := c.Args().First(); dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("backup directory %s: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("backup directory %s is not a directory", dir)
		}
		snapshot, _, err := backup.SnapshotContents(dir)
		if err != nil {
			return err
		}
		printEntries(out, snapshot)
		return nil
	}

	summaries, err := backup.ListSnapshots(cfg.Backup.Root)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintf(out, "No backups found in %s.\n", cfg.Backup.Root)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFILES\tSIZE\tSOURCE")
	for _, s := range summaries {
		source := s.Source
		if !s.HasMetadata {
			source = "(no metadata)"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.Name, s.TotalFiles, humanize.Bytes(uint64(s.TotalSize)), source)
	}
	return tw.Flush()
}

func runCleanup(c *cli.Context) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	root := rootDir(c, cfg)
	if cfg.Backup.MaxBackups <= 0 {
		fmt.Fprintln(c.App.Writer, "Retention is disabled (S3_MAX_BACKUPS=0); nothing removed.")
		return nil
	}
	deleted := backup.Cleanup(root, cfg.Backup.MaxBackups)
	fmt.Fprintf(c.App.Writer, "Removed %d old backup(s) from %s, keeping %d.\n", deleted, root, cfg.Backup.MaxBackups)
	return nil
}

func printEntries(out io.Writer, snapshot domain.BackupSnapshot) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSIZE\tLAST MODIFIED")
	for _, e := range snapshot.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Key, humanize.Bytes(uint64(e.Size)), e.LastModified)
	}
	tw.Flush()
	fmt.Fprintf(out, "%d files, %s\n", snapshot.TotalFiles, humanize.Bytes(uint64(snapshot.TotalSize)))
}

func printResult(out io.Writer, result domain.TransferResult) {
	fmt.Fprintf(out, "Successful: %d  Failed: %d  Skipped: %d\n", result.Successful, result.Failed, result.Skipped)
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  %s: %s\n", e.Key, e.Message)
	}
}
