// Package auditlog owns the append-only JSON-lines audit stream: one
// self-contained record per line, one file per resource type per day,
// size-based rotation with a bounded number of backups. It is the single
// logical sink of the run; concurrent emitters are serialized so records
// never interleave.
package auditlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/de-tools/site-warden/pkg/models/domain"
)

const (
	// runStream collects entries not tied to a resource type (run summary,
	// enumeration shortfall).
	runStream = "run"

	defaultMaxFileBytes = 10 * 1024 * 1024
	defaultMaxBackups   = 5
)

type Options struct {
	Dir          string
	MaxFileBytes int64
	MaxBackups   int
	Now          func() time.Time
}

type activeFile struct {
	file *os.File
	path string
	size int64
}

type Writer struct {
	opts Options

	mu    sync.Mutex
	files map[string]*activeFile
}

func NewWriter(opts Options) (*Writer, error) {
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = defaultMaxFileBytes
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = defaultMaxBackups
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}
	return &Writer{
		opts:  opts,
		files: make(map[string]*activeFile),
	}, nil
}

// Emit appends one entry to its stream's active file. Entries are immutable
// once written; a failed write never corrupts previously written lines.
func (w *Writer) Emit(entry domain.LogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = w.opts.Now()
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding audit entry: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	active, err := w.activeFor(entry)
	if err != nil {
		return err
	}

	if active.size+int64(len(line)) > w.opts.MaxFileBytes && active.size > 0 {
		if err := w.rotate(active); err != nil {
			return err
		}
	}

	n, err := active.file.Write(line)
	active.size += int64(n)
	if err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	for stream, active := range w.files {
		if err := active.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(w.files, stream)
	}
	return firstErr
}

func stream(entry domain.LogEntry) string {
	if entry.Resource != "" {
		return string(entry.Resource)
	}
	return runStream
}

// activeFor returns the open file for the entry's stream and day, opening a
// new one on the first entry of a stream or when the day rolled over.
func (w *Writer) activeFor(entry domain.LogEntry) (*activeFile, error) {
	name := stream(entry)
	path := filepath.Join(w.opts.Dir,
		fmt.Sprintf("%s_%s.jsonl", name, entry.Timestamp.Format("2006-01-02")))

	if active, ok := w.files[name]; ok {
		if active.path == path {
			return active, nil
		}
		_ = active.file.Close()
		delete(w.files, name)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	active := &activeFile{file: f, path: path, size: info.Size()}
	w.files[name] = active
	return active, nil
}

// rotate shifts backups up (file.jsonl.1 -> .2, ...), dropping the oldest
// past MaxBackups, then moves the active file to .1 and starts fresh.
func (w *Writer) rotate(active *activeFile) error {
	if err := active.file.Close(); err != nil {
		return err
	}

	oldest := fmt.Sprintf("%s.%d", active.path, w.opts.MaxBackups)
	_ = os.Remove(oldest)
	for i := w.opts.MaxBackups - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", active.path, i)
		to := fmt.Sprintf("%s.%d", active.path, i+1)
		if _, err := os.Stat(from); err == nil {
			if err := os.Rename(from, to); err != nil {
				return fmt.Errorf("rotating audit log: %w", err)
			}
		}
	}
	if err := os.Rename(active.path, active.path+".1"); err != nil {
		return fmt.Errorf("rotating audit log: %w", err)
	}

	f, err := os.OpenFile(active.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("reopening audit log after rotation: %w", err)
	}
	active.file = f
	active.size = 0
	return nil
}
