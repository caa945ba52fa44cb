package journal

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/tphakala/ringscout/internal/errors"
	"github.com/tphakala/ringscout/internal/logging"
)

// Package-level logger for journal events.
var logger *slog.Logger

func init() {
	var err error
	logger, _, err = logging.NewFileLogger("logs/journal.log", "journal", slog.LevelInfo)
	if err != nil {
		logging.Error("Failed to initialize journal file logger", "error", err)
		logger = logging.ForService("journal")
	}
}

// ParserState is the explicit tail position of one watched journal file.
// It is owned by a single Tailer; there is no package-level mutable state.
type ParserState struct {
	Path   string // active journal file, empty before the first poll
	Offset int64  // next byte to read
	carry  []byte // partial trailing line held for the next poll
}

// Tailer polls a journal directory for the active session file and feeds
// complete new lines through ParseLine to the handler. Bytes are consumed
// exactly once: a consumed byte range is never re-emitted, even across file
// handle re-opens, and a new session file starts at its current end so
// historical events are never replayed.
type Tailer struct {
	dir          string
	pollInterval time.Duration
	handler      func(Event)
	onSwitch     func() // invoked after switching to a new session file

	state ParserState
}

// OnFileSwitch registers a callback invoked whenever the tailer switches to
// a new session file. The session cross-reference state is cleared there.
func (t *Tailer) OnFileSwitch(fn func()) {
	t.onSwitch = fn
}

// NewTailer creates a Tailer watching dir. The handler receives every parsed
// event in arrival order; it runs on the tailer's goroutine.
func NewTailer(dir string, pollInterval time.Duration, handler func(Event)) *Tailer {
	return &Tailer{
		dir:          dir,
		pollInterval: pollInterval,
		handler:      handler,
	}
}

// State returns a copy of the current parser state.
func (t *Tailer) State() ParserState {
	s := t.state
	s.carry = append([]byte(nil), t.state.carry...)
	return s
}

// Run polls until the context is cancelled.
func (t *Tailer) Run(ctx context.Context) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	logger.Info("Journal tailer started", "dir", t.dir, "interval", t.pollInterval)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Journal tailer stopped")
			return
		case <-ticker.C:
			if err := t.Poll(); err != nil {
				logger.Warn("Journal poll failed", "error", err)
			}
		}
	}
}

// Poll performs one poll tick: detect the active file, read the delta,
// parse complete lines. Exported so tests and the realtime loop can drive
// it without the ticker.
func (t *Tailer) Poll() error {
	active, err := t.activeFile()
	if err != nil {
		return err
	}
	if active == "" {
		return nil // no journal yet
	}

	if active != t.state.Path {
		// New session file. Start at its current end, not at zero: reading
		// from zero would replay the entire historical file. The comparison
		// below deliberately assigns even when the size is exactly 0.
		info, err := os.Stat(active)
		if err != nil {
			return errors.New(err).
				Component("journal").
				Category(errors.CategoryFileIO).
				Context("path", active).
				Build()
		}
		t.state = ParserState{Path: active, Offset: info.Size()}
		logger.Info("Switched to journal file", "path", active, "offset", t.state.Offset)
		if t.onSwitch != nil {
			t.onSwitch()
		}
		return nil
	}

	info, err := os.Stat(active)
	if err != nil {
		return errors.New(err).
			Component("journal").
			Category(errors.CategoryFileIO).
			Context("path", active).
			Build()
	}

	size := info.Size()
	if size < t.state.Offset {
		// The file shrank in place: treat like a fresh session under the
		// same name and skip to its end rather than replaying it.
		logger.Warn("Journal file truncated, seeking to end",
			"path", active, "old_offset", t.state.Offset, "size", size)
		t.state.Offset = size
		t.state.carry = nil
		return nil
	}
	if size == t.state.Offset {
		return nil
	}

	return t.readDelta(active, size)
}

// readDelta reads [offset, size) from the file, parses complete lines and
// retains any partial trailing line for the next tick.
func (t *Tailer) readDelta(path string, size int64) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.New(err).
			Component("journal").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close()

	if _, err := f.Seek(t.state.Offset, io.SeekStart); err != nil {
		return errors.New(err).
			Component("journal").
			Category(errors.CategoryFileIO).
			Build()
	}

	delta := make([]byte, size-t.state.Offset)
	n, err := io.ReadFull(f, delta)
	if err != nil && err != io.ErrUnexpectedEOF {
		return errors.New(err).
			Component("journal").
			Category(errors.CategoryFileIO).
			Build()
	}
	delta = delta[:n]
	t.state.Offset += int64(n)

	data := append(t.state.carry, delta...)
	t.state.carry = nil

	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			// Partially written final line: hold it for the next tick.
			if len(data) > 0 {
				t.state.carry = data
			}
			return nil
		}
		line := bytes.TrimSpace(data[:idx])
		data = data[idx+1:]
		if len(line) == 0 {
			continue
		}

		ev, err := ParseLine(line)
		if err != nil {
			logger.Warn("Skipping malformed journal line", "error", err)
			continue
		}
		if ev != nil {
			t.handler(ev)
		}
	}
}

// activeFile returns the most recent session journal in the watched
// directory, or "" when none exists.
func (t *Tailer) activeFile() (string, error) {
	matches, err := filepath.Glob(filepath.Join(t.dir, "Journal*.log"))
	if err != nil {
		return "", errors.New(err).
			Component("journal").
			Category(errors.CategoryFileIO).
			Context("dir", t.dir).
			Build()
	}
	if len(matches) == 0 {
		return "", nil
	}

	type fileTime struct {
		path string
		mod  time.Time
	}
	var files []fileTime
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue // file may have vanished between glob and stat
		}
		files = append(files, fileTime{path: m, mod: info.ModTime()})
	}
	if len(files) == 0 {
		return "", nil
	}
	sort.Slice(files, func(i, j int) bool {
		if !files[i].mod.Equal(files[j].mod) {
			return files[i].mod.After(files[j].mod)
		}
		return files[i].path > files[j].path
	})
	return files[0].path, nil
}
