package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shubhampawar7/JobReach/internal/engine"
	"github.com/shubhampawar7/JobReach/internal/recipients"
	"github.com/shubhampawar7/JobReach/pkg/logx"
)

// fakeDispatcher records what the watcher asks it to send and keeps its own
// known set so repeated reconciles behave like the real engine's diffing.
type fakeDispatcher struct {
	mu         sync.Mutex
	known      map[string]struct{}
	dispatched []string
}

func (f *fakeDispatcher) DiffKnown(next []recipients.Recipient) []recipients.Recipient {
	f.mu.Lock()
	defer f.mu.Unlock()
	var added []recipients.Recipient
	for _, r := range next {
		if _, ok := f.known[r.Email]; !ok {
			added = append(added, r)
		}
	}
	f.known = recipients.EmailSet(next)
	return added
}

func (f *fakeDispatcher) Run(ctx context.Context, trigger engine.Trigger, only []recipients.Recipient) (engine.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range only {
		f.dispatched = append(f.dispatched, r.Email)
	}
	return engine.Result{Recipients: len(only), Pending: len(only), Sent: len(only)}, nil
}

func (f *fakeDispatcher) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.dispatched...)
}

func newWatchHarness(t *testing.T, initial string) (*Watcher, *fakeDispatcher, string) {
	t.Helper()
	dir := t.TempDir()
	recPath := filepath.Join(dir, "recipients.csv")
	if err := os.WriteFile(recPath, []byte(initial), 0o600); err != nil {
		t.Fatal(err)
	}

	d := &fakeDispatcher{known: recipients.EmailSet(recipients.Load(recPath))}
	return New(d, recPath, 10*time.Millisecond, logx.Nop()), d, recPath
}

func TestReconcileProcessesOnlyNewRecipients(t *testing.T) {
	w, d, recPath := newWatchHarness(t, "a@x.com,Alice\n")

	// a@x.com is known from the initial snapshot and still pending; an
	// appended b@x.com must be the only recipient the watcher dispatches.
	if err := os.WriteFile(recPath, []byte("a@x.com,Alice\nb@x.com,Bob\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	w.Reconcile(context.Background())

	if got := d.sent(); len(got) != 1 || got[0] != "b@x.com" {
		t.Fatalf("sent = %v, want only b@x.com", got)
	}
}

func TestReconcileNoChangesIsQuiet(t *testing.T) {
	w, d, _ := newWatchHarness(t, "a@x.com\n")
	w.Reconcile(context.Background())
	if got := d.sent(); len(got) != 0 {
		t.Fatalf("sent = %v, want none", got)
	}
}

func TestReconcileRepeatDoesNotResend(t *testing.T) {
	w, d, recPath := newWatchHarness(t, "")

	if err := os.WriteFile(recPath, []byte("b@x.com\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	w.Reconcile(context.Background())
	w.Reconcile(context.Background())

	if got := d.sent(); len(got) != 1 {
		t.Fatalf("sent = %v, want exactly one send", got)
	}
}

func TestDebounceCollapsesBursts(t *testing.T) {
	w, d, recPath := newWatchHarness(t, "")
	if err := os.WriteFile(recPath, []byte("b@x.com\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		w.schedule(ctx)
	}
	time.Sleep(150 * time.Millisecond)

	if got := d.sent(); len(got) != 1 {
		t.Fatalf("sent = %v, want one send from one coalesced reconcile", got)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	w, _, _ := newWatchHarness(t, "")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}
