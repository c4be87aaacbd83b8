package audit

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shubhampawar7/JobReach/pkg/logx"
)

// header is the fixed column set of the CSV table.
var header = []string{"email", "name", "subject", "error"}

// legacyAliases remaps column names from older versions to the current
// schema when an existing table is loaded.
var legacyAliases = map[string]string{
	"toEmail": "email",
	"toName":  "name",
}

// fileLog is the CSV backend.
//
// Open normalizes the existing table once (legacy column remap, rebuild on
// unreadable content), then appends rows to the open handle.
type fileLog struct {
	log logx.Logger

	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

func openFile(cfg Config, log logx.Logger) (Log, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("audit.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	rows, err := normalizeTable(path)
	if err != nil {
		return nil, err
	}
	if rows != nil {
		if err := writeTableAtomic(path, rows); err != nil {
			return nil, err
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &fileLog{log: log, f: f, w: csv.NewWriter(f)}, nil
}

func (l *fileLog) Append(ctx context.Context, r Row) error {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return errors.New("audit file closed")
	}
	if err := l.w.Write([]string{r.Email, r.Name, r.Subject, r.Error}); err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}

func (l *fileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	l.w.Flush()
	err := l.f.Close()
	l.f = nil
	return err
}

// normalizeTable loads the existing table and returns the rows to rewrite,
// or nil when the file is already in the current schema. A missing or
// unreadable file yields a fresh empty table.
func normalizeTable(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return [][]string{header}, nil
		}
		return [][]string{header}, nil
	}
	defer f.Close()

	rd := csv.NewReader(f)
	rd.FieldsPerRecord = -1
	records, err := rd.ReadAll()
	if err != nil || len(records) == 0 {
		// Unreadable content: rebuild a valid empty table.
		return [][]string{header}, nil
	}

	got := make([]string, len(records[0]))
	for i, c := range records[0] {
		c = strings.TrimSpace(c)
		if canonical, ok := legacyAliases[c]; ok {
			c = canonical
		}
		got[i] = c
	}

	if equalHeader(got, header) && len(records[0]) == len(header) && sameRaw(records[0], got) {
		return nil, nil
	}

	// Remap every data row onto the current header by column name.
	idx := map[string]int{}
	for i, c := range got {
		if _, dup := idx[c]; !dup {
			idx[c] = i
		}
	}
	out := [][]string{header}
	for _, rec := range records[1:] {
		mapped := make([]string, len(header))
		empty := true
		for i, col := range header {
			j, ok := idx[col]
			if !ok || j >= len(rec) {
				continue
			}
			mapped[i] = rec[j]
			if strings.TrimSpace(rec[j]) != "" {
				empty = false
			}
		}
		if !empty {
			out = append(out, mapped)
		}
	}
	return out, nil
}

func equalHeader(got, want []string) bool {
	set := map[string]struct{}{}
	for _, c := range got {
		set[c] = struct{}{}
	}
	for _, c := range want {
		if _, ok := set[c]; !ok {
			return false
		}
	}
	return true
}

func sameRaw(raw, normalized []string) bool {
	for i := range raw {
		if strings.TrimSpace(raw[i]) != normalized[i] {
			return false
		}
	}
	return true
}

func writeTableAtomic(path string, rows [][]string) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
