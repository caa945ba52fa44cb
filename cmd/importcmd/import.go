// Package importcmd provides the one-shot bulk dataset import command.
package importcmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tphakala/ringscout/internal/conf"
	"github.com/tphakala/ringscout/internal/datastore"
	"github.com/tphakala/ringscout/internal/importer"
	"github.com/tphakala/ringscout/internal/reconcile"
)

// Command creates the import subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var reset bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import [dataset file]",
		Short: "Import a community hotspot dataset",
		Long: "Stream a community dataset (JSON lines or CSV) into the hotspot database. " +
			"Runs are checkpointed by file checksum, so an interrupted import resumes where it left off.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings, args[0], reset, dryRun)
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Discard previous progress for this dataset and start over")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and count rows without writing anything")
	return cmd
}

func run(settings *conf.Settings, path string, reset, dryRun bool) error {
	store := datastore.New(settings, reconcile.New())
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()

	im := importer.New(store)
	defer im.Close()

	if dryRun {
		valid, malformed, err := im.Count(path)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d importable rows, %d malformed\n", path, valid, malformed)
		return nil
	}

	// An interrupt checkpoints progress instead of losing it.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := im.Run(ctx, path, reset)
	if err != nil {
		if report != nil {
			fmt.Printf("import interrupted at line %d, progress saved\n", report.Lines)
		}
		return err
	}

	if report.Resumed {
		fmt.Println("resumed from previous checkpoint")
	}
	fmt.Printf("run %s: %d lines, %d inserted, %d updated, %d skipped, %d failed\n",
		report.RunID, report.Lines, report.Inserted, report.Updated, report.Skipped, report.Failed)
	return nil
}
