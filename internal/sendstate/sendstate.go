// Package sendstate persists the per-recipient delivery outcome.
//
// The store is the idempotency authority: a recipient is contacted again
// only if no "sent" outcome is recorded for its email. It is a single JSON
// document mapping normalized email -> latest outcome, rewritten wholesale
// through a tmp-file + rename so a crash mid-write never corrupts existing
// state. The design assumes a single active engine process; concurrent
// processes racing on the same file are not defended against.
package sendstate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/shubhampawar7/JobReach/internal/recipients"
)

type State string

const (
	StateSent  State = "sent"
	StateError State = "error"
)

// Outcome is the last-known delivery result for one email.
// A later outcome overwrites an earlier one (last-write-wins).
type Outcome struct {
	State     State     `json:"state"`
	At        time.Time `json:"at"`
	MessageID string    `json:"messageId,omitempty"`
	Response  string    `json:"response,omitempty"`
	Error     string    `json:"error,omitempty"`
	Trigger   string    `json:"trigger,omitempty"`
}

// Store maps normalized email -> outcome.
type Store map[string]Outcome

// Load reads the persisted store. Missing file or parse failure yields an
// empty store, never an error.
func Load(path string) Store {
	b, err := os.ReadFile(path)
	if err != nil {
		return Store{}
	}
	var s Store
	if err := json.Unmarshal(b, &s); err != nil || s == nil {
		return Store{}
	}
	return s
}

// IsSent reports whether email has a recorded "sent" outcome.
// An "error" outcome does not count: the recipient stays pending and is
// retried on the next run.
func (s Store) IsSent(email string) bool {
	o, ok := s[recipients.NormalizeEmail(email)]
	return ok && o.State == StateSent
}

// Detail carries the provider metadata recorded alongside an outcome.
type Detail struct {
	MessageID string
	Response  string
	Error     string
	Trigger   string
}

// MarkSent records a successful delivery for email.
// After it returns nil, IsSent for that email is true until the file is
// externally modified or deleted.
func MarkSent(path, email string, d Detail) error {
	return mark(path, email, Outcome{
		State:     StateSent,
		At:        time.Now().UTC(),
		MessageID: d.MessageID,
		Response:  d.Response,
		Trigger:   d.Trigger,
	})
}

// MarkError records a failed delivery attempt for email.
func MarkError(path, email string, d Detail) error {
	return mark(path, email, Outcome{
		State:   StateError,
		At:      time.Now().UTC(),
		Error:   d.Error,
		Trigger: d.Trigger,
	})
}

// mark re-reads the store, overwrites the one key and writes the whole
// document back atomically. Not transactionally isolated across processes.
func mark(path, email string, o Outcome) error {
	s := Load(path)
	s[recipients.NormalizeEmail(email)] = o
	return writeAtomic(path, s)
}

func writeAtomic(path string, s Store) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
