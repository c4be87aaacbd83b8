package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shubhampawar7/JobReach/pkg/logx"
)

var ErrDisabled = errors.New("audit log disabled")

// Config configures the audit log.
//
// Driver values:
//   - "file": CSV table with a fixed header
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", the audit log is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Row is one delivery attempt as recorded for humans.
// Keep it compact and schema-stable.
type Row struct {
	Email   string
	Name    string
	Subject string
	Error   string
}

// Log is the minimal audit API used by the engine.
type Log interface {
	Append(ctx context.Context, r Row) error
	Close() error
}

// Open initializes the configured audit log.
// It returns (nil, nil) if the audit log is disabled.
func Open(cfg Config, log logx.Logger) (Log, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file", "csv":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown audit driver: " + driver)
	}
}
