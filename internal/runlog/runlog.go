// Package runlog keeps an operational audit of pipeline runs: one JSON line per
// run in a daily file, gzipped past the retention window. Only outcomes are
// recorded, never the recommendations themselves.
package runlog

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"stock-recommender/internal/logger"
	"stock-recommender/internal/service"
)

// Entry is the persisted summary of one run.
type Entry struct {
	Time            string            `json:"time"`
	RunID           string            `json:"run_id"`
	Parallel        bool              `json:"parallel"`
	Success         bool              `json:"success"`
	Seconds         float64           `json:"execution_time_seconds"`
	Recommendations int               `json:"recommendations"`
	AgentStatus     map[string]string `json:"agent_status,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// Log writes entries under dir, one file per UTC day.
type Log struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

// New returns a Log rooted at dir. The directory is created on first write.
func New(dir string) *Log {
	if dir == "" {
		dir = "logs/runs"
	}
	return &Log{dir: dir, now: time.Now}
}

// Dir returns the directory entries are written to.
func (l *Log) Dir() string { return l.dir }

func (l *Log) dailyFilepath(t time.Time) string {
	return filepath.Join(l.dir, t.UTC().Format("2006-01-02")+".txt")
}

// EntryFrom summarizes a response.
func EntryFrom(resp service.Response, parallel bool) Entry {
	return Entry{
		RunID:           resp.RunID,
		Parallel:        parallel,
		Success:         resp.Success,
		Seconds:         resp.ExecutionTimeSeconds,
		Recommendations: len(resp.Recommendations),
		AgentStatus:     resp.AgentStatus,
		Error:           resp.Error,
	}
}

// Append stamps e with the current time and appends it to today's file.
func (l *Log) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e.Time = now.UTC().Format(time.RFC3339)
	p := l.dailyFilepath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// Read returns the entries written on the given day, oldest first.
func (l *Log) Read(day time.Time) ([]Entry, error) {
	b, err := os.ReadFile(l.dailyFilepath(day))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Entry
	dec := json.NewDecoder(bytes.NewReader(b))
	for dec.More() {
		var e Entry
		if err := dec.Decode(&e); err != nil {
			return out, fmt.Errorf("corrupt run log %s: %w", l.dailyFilepath(day), err)
		}
		out = append(out, e)
	}
	return out, nil
}

// CompressOlder gzips .txt files last modified more than retentionDays ago.
// A non-positive retention keeps everything uncompressed.
func (l *Log) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := l.now().AddDate(0, 0, -retentionDays)

	l.mu.Lock()
	defer l.mu.Unlock()

	return filepath.WalkDir(l.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := gzipFile(p, gz); err != nil {
			return nil
		}
		return os.Remove(p)
	})
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Recommender is the subset of the service a Recorder decorates.
type Recommender interface {
	GenerateRecommendations(ctx context.Context, parallel bool) service.Response
}

// Recorder appends every response it passes through to a Log. Write failures
// are logged and never change the response.
type Recorder struct {
	next Recommender
	log  *Log
}

var _ Recommender = (*Recorder)(nil)

// Record wraps next. A nil log returns next unchanged.
func Record(next Recommender, log *Log) Recommender {
	if log == nil {
		return next
	}
	return &Recorder{next: next, log: log}
}

func (r *Recorder) GenerateRecommendations(ctx context.Context, parallel bool) service.Response {
	resp := r.next.GenerateRecommendations(ctx, parallel)
	if err := r.log.Append(EntryFrom(resp, parallel)); err != nil {
		logger.Warn(ctx, "Failed to append run log", "run_id", resp.RunID, "dir", r.log.Dir(), "error", err)
	}
	return resp
}
