// Package importer performs the one-shot bulk load of a community hotspot
// dataset into the spatial store. Every row goes through the same
// reconcile-then-upsert path as the realtime adapters, so a bulk load can
// never clobber higher-fidelity journal data already present.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/ringscout/internal/datastore"
	"github.com/tphakala/ringscout/internal/errors"
	"github.com/tphakala/ringscout/internal/logging"
	"github.com/tphakala/ringscout/internal/ring"
)

var (
	logger      *slog.Logger
	closeLogger func() error
)

func init() {
	var err error
	logger, closeLogger, err = logging.NewFileLogger("logs/importer.log", "importer", slog.LevelInfo)
	if err != nil || logger == nil {
		logger = logging.ForService("importer")
		closeLogger = func() error { return nil }
	}
}

// checkpointEvery is how many applied lines pass between progress saves.
const checkpointEvery = 500

// Importer streams a dataset file into the store.
type Importer struct {
	store datastore.Interface
}

// New creates an Importer writing through the given store.
func New(store datastore.Interface) *Importer {
	return &Importer{store: store}
}

// Close releases the importer's log writer. Call once after the last run.
func (im *Importer) Close() error {
	return closeLogger()
}

// Report is the outcome of one import run.
type Report struct {
	RunID    string
	Lines    int64
	Inserted int64
	Updated  int64
	Skipped  int64
	Failed   int64
	Resumed  bool
	Complete bool
}

// Run imports the dataset at path. A run is keyed by the file's checksum:
// re-running the same file resumes from the last checkpoint, and a file
// already imported to completion is a no-op. reset discards any previous
// progress for the file and starts over.
func (im *Importer) Run(ctx context.Context, path string, reset bool) (*Report, error) {
	checksum, err := fileChecksum(path)
	if err != nil {
		return nil, err
	}

	run, err := im.store.GetImportRun(checksum)
	if err != nil {
		return nil, err
	}
	if run != nil && reset {
		run = nil
	}
	resumed := false
	if run == nil {
		run = &datastore.ImportRun{
			ID:              uuid.NewString(),
			DatasetChecksum: checksum,
			DatasetPath:     path,
		}
	} else {
		if run.CompletedAt != nil {
			logger.Info("dataset already imported", "path", path, "run_id", run.ID)
			return reportFor(run, false), nil
		}
		resumed = run.LineOffset > 0
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("importer").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close()

	rows, err := newRowReader(path, f)
	if err != nil {
		return nil, err
	}

	if resumed {
		logger.Info("resuming import", "path", path, "from_line", run.LineOffset)
		if err := rows.Skip(run.LineOffset); err != nil {
			return nil, err
		}
	}

	// Systems whose coordinates were already offered to the resolver cache
	// during this run; avoids a read per row for large single-system blocks.
	primed := make(map[string]bool)

	for {
		if err := ctx.Err(); err != nil {
			// Persist progress so the next run resumes here.
			if saveErr := im.store.SaveImportRun(run); saveErr != nil {
				logger.Error("failed to checkpoint on cancel", "error", saveErr)
			}
			return reportFor(run, resumed), err
		}

		rec, err := rows.Next()
		if err == io.EOF {
			break
		}
		run.LineOffset++
		if err != nil {
			run.Failed++
			logger.Warn("skipping malformed dataset row",
				"line", run.LineOffset, "error", err)
			continue
		}

		action, err := im.store.Upsert(rec)
		if err != nil {
			run.Failed++
			logger.Warn("row rejected by store",
				"line", run.LineOffset,
				"system", rec.SystemName,
				"error", err)
		} else {
			switch action {
			case datastore.ActionInsert:
				run.Inserted++
			case datastore.ActionUpdate:
				run.Updated++
			default:
				run.Skipped++
			}
			im.primeCoordinate(rec, primed)
		}

		if run.LineOffset%checkpointEvery == 0 {
			if err := im.store.SaveImportRun(run); err != nil {
				logger.Error("failed to checkpoint import progress", "error", err)
			}
		}
	}

	now := time.Now().UTC()
	run.CompletedAt = &now
	if err := im.store.SaveImportRun(run); err != nil {
		return nil, err
	}

	logger.Info("import complete",
		"path", path,
		"lines", run.LineOffset,
		"inserted", run.Inserted,
		"updated", run.Updated,
		"skipped", run.Skipped,
		"failed", run.Failed)
	return reportFor(run, resumed), nil
}

// Count performs a dry run: it parses the dataset and reports how many rows
// would be applied, without touching the store.
func (im *Importer) Count(path string) (valid, malformed int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, errors.New(err).
			Component("importer").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close()

	rows, err := newRowReader(path, f)
	if err != nil {
		return 0, 0, err
	}
	for {
		_, err := rows.Next()
		if err == io.EOF {
			return valid, malformed, nil
		}
		if err != nil {
			malformed++
			continue
		}
		valid++
	}
}

// primeCoordinate offers a row's system position to the resolver's
// coordinate cache so bundled systems resolve without a remote lookup.
// Existing entries are left alone: journal-sourced coordinates outrank a
// bundled dataset and must never be overwritten by one.
func (im *Importer) primeCoordinate(rec *datastore.Hotspot, primed map[string]bool) {
	if !rec.HasCoords() || primed[rec.SystemName] {
		return
	}
	primed[rec.SystemName] = true

	existing, err := im.store.GetCoordinate(rec.SystemName)
	if err != nil || existing != nil {
		return
	}
	if err := im.store.SaveCoordinate(&datastore.SystemCoordinate{
		SystemName:    rec.SystemName,
		SystemAddress: rec.SystemAddress,
		X:             *rec.X,
		Y:             *rec.Y,
		Z:             *rec.Z,
		Source:        ring.CoordBundled,
		FetchedAt:     time.Now().UTC(),
	}); err != nil {
		logger.Warn("failed to prime coordinate cache",
			"system", rec.SystemName, "error", err)
	}
}

func reportFor(run *datastore.ImportRun, resumed bool) *Report {
	return &Report{
		RunID:    run.ID,
		Lines:    run.LineOffset,
		Inserted: run.Inserted,
		Updated:  run.Updated,
		Skipped:  run.Skipped,
		Failed:   run.Failed,
		Resumed:  resumed,
		Complete: run.CompletedAt != nil,
	}
}

// fileChecksum hashes the whole dataset file. The hash keys the import run,
// so an edited file counts as a new dataset.
func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.New(err).
			Component("importer").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.New(err).
			Component("importer").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
