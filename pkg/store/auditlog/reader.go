package auditlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/de-tools/site-warden/pkg/models/domain"
)

// ReadFile parses one JSON-lines audit file. Unparseable lines are skipped
// rather than failing the read: a partially written trailing line must not
// make the rest of the stream unreadable.
func ReadFile(path string) ([]domain.LogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []domain.LogEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry domain.LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("reading %s: %w", path, err)
	}
	return entries, nil
}

// CollectRun gathers every entry of one run from the audit directory,
// including rotated backups, ordered by timestamp. The correlation
// identifier is all it needs: a run is reconstructable from the log stream
// alone.
func CollectRun(dir, runID string) ([]domain.LogEntry, error) {
	paths, err := logPaths(dir)
	if err != nil {
		return nil, err
	}

	var entries []domain.LogEntry
	for _, path := range paths {
		fileEntries, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range fileEntries {
			if entry.RunID == runID {
				entries = append(entries, entry)
			}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

// ListRunIDs returns the distinct run identifiers present in the audit
// directory, most recent first.
func ListRunIDs(dir string) ([]string, error) {
	paths, err := logPaths(dir)
	if err != nil {
		return nil, err
	}

	type seenRun struct {
		id   string
		last int64
	}
	seen := make(map[string]*seenRun)
	for _, path := range paths {
		entries, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			run, ok := seen[entry.RunID]
			if !ok {
				run = &seenRun{id: entry.RunID}
				seen[entry.RunID] = run
			}
			if ts := entry.Timestamp.UnixNano(); ts > run.last {
				run.last = ts
			}
		}
	}

	runs := make([]*seenRun, 0, len(seen))
	for _, run := range seen {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].last > runs[j].last })

	ids := make([]string, len(runs))
	for i, run := range runs {
		ids[i] = run.id
	}
	return ids, nil
}

func logPaths(dir string) ([]string, error) {
	active, err := filepath.Glob(filepath.Join(dir, "*.jsonl"))
	if err != nil {
		return nil, err
	}
	rotated, err := filepath.Glob(filepath.Join(dir, "*.jsonl.*"))
	if err != nil {
		return nil, err
	}
	return append(active, rotated...), nil
}
