// Package watch observes the recipient source file and feeds newly
// appended recipients into the dispatch loop.
//
// Change events are debounced with a cancel-and-reschedule timer so a burst
// of writes collapses into one reconciliation. Each reconciliation diffs
// the current source snapshot against the engine's last-known set and runs
// the loop restricted to exactly the new entries, tagged "watch".
package watch

import (
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/shubhampawar7/JobReach/internal/engine"
	"github.com/shubhampawar7/JobReach/internal/recipients"
	"github.com/shubhampawar7/JobReach/pkg/logx"
)

// Dispatcher is the engine surface the watcher drives: diffing the source
// snapshot against the last-known set and running the loop over the result.
type Dispatcher interface {
	DiffKnown(next []recipients.Recipient) []recipients.Recipient
	Run(ctx context.Context, trigger engine.Trigger, only []recipients.Recipient) (engine.Result, error)
}

type Watcher struct {
	eng      Dispatcher
	path     string
	debounce time.Duration
	log      logx.Logger

	timerMu sync.Mutex
	timer   *time.Timer
}

func New(eng Dispatcher, path string, debounce time.Duration, log logx.Logger) *Watcher {
	return &Watcher{eng: eng, path: path, debounce: debounce, log: log}
}

// Run watches until ctx is cancelled.
//
// When fsnotify gets into a bad state the watcher may stop delivering
// events or close its channels. Self-heal by recreating the watcher with a
// small exponential backoff.
func (w *Watcher) Run(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	file := filepath.Base(w.path)

	const (
		restartBackoffBase = 250 * time.Millisecond
		restartBackoffMax  = 5 * time.Second
	)
	backoff := restartBackoffBase
	// local RNG to avoid global contention (and to keep jitter deterministic per process).
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	wait := func() time.Duration {
		d := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		if backoff < restartBackoffMax {
			backoff *= 2
			if backoff > restartBackoffMax {
				backoff = restartBackoffMax
			}
		}
		return d
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		fw, err := fsnotify.NewWatcher()
		if err == nil {
			err = fw.Add(dir)
			if err != nil {
				_ = fw.Close()
			}
		}
		if err != nil {
			w.log.Warn("recipient watch init failed", logx.Err(err), logx.String("dir", dir))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait()):
				continue
			}
		}

		// success; reset backoff so transient issues don't cause long restart delays
		backoff = restartBackoffBase
		w.log.Info("watching for new recipients", logx.String("path", w.path))

		// inner loop: runs until the watcher breaks, then the outer loop recreates it.
		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = fw.Close()
				w.cancelPending()
				return nil
			case ev, ok := <-fw.Events:
				if !ok {
					broken = true
					break
				}
				// Compare by basename (robust across absolute/relative paths and OS quirks).
				if strings.EqualFold(filepath.Base(ev.Name), file) {
					if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Chmod) != 0 {
						w.schedule(ctx)
					}
				}
			case err, ok := <-fw.Errors:
				if !ok {
					broken = true
					break
				}
				if err == nil {
					continue
				}
				// Overflow means we may have missed events; reconcile once and keep going.
				if strings.Contains(strings.ToLower(err.Error()), "overflow") {
					w.log.Warn("recipient watch overflow; forcing reconcile", logx.Err(err))
					w.schedule(ctx)
					continue
				}
				w.log.Warn("recipient watch error", logx.Err(err))
				if strings.Contains(strings.ToLower(err.Error()), "closed") {
					broken = true
					break
				}
			}
		}

		_ = fw.Close()
		if ctx.Err() != nil {
			w.cancelPending()
			return nil
		}
		d := wait()
		w.log.Warn("recipient watcher stopped; restarting", logx.Duration("backoff", d))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(d):
			continue
		}
	}
}

// schedule arms the debounce timer. Only the latest scheduled
// reconciliation fires; earlier pending ones are cancelled.
func (w *Watcher) schedule(ctx context.Context) {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.log.Debug("recipient change detected; scheduling reconcile", logx.String("path", w.path))
	w.timer = time.AfterFunc(w.debounce, func() {
		w.Reconcile(ctx)
	})
}

func (w *Watcher) cancelPending() {
	w.timerMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.timerMu.Unlock()
}

// Reconcile reloads the source, diffs it against the last-known set and
// dispatches to exactly the newly-appeared recipients. Errors are logged
// and do not stop the watcher from processing future events.
func (w *Watcher) Reconcile(ctx context.Context) {
	next := recipients.Load(w.path)
	added := w.eng.DiffKnown(next)
	if len(added) == 0 {
		w.log.Debug("reconcile found no new recipients")
		return
	}

	w.log.Info("new recipients added", logx.Int("count", len(added)))
	res, err := w.eng.Run(ctx, engine.TriggerWatch, added)
	if err != nil {
		w.log.Error("watch-triggered run failed", logx.Err(err))
		return
	}
	w.log.Info("watch-triggered run complete",
		logx.Int("sent", res.Sent),
		logx.Int("errored", res.Errored),
		logx.Int("pending", res.Pending),
	)
}
