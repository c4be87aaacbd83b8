// Package engine runs the dispatch loop: pending recipients are computed
// from the recipient source minus the send-state store, then contacted
// strictly sequentially over one shared transport, throttled by a fixed
// inter-send delay.
//
// The engine instance is long-lived. It also owns the process-scoped
// last-known recipient set used by the watcher's diffing, and serializes
// runs so a watch-triggered run and a scheduled run never interleave sends.
package engine

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/shubhampawar7/JobReach/internal/audit"
	"github.com/shubhampawar7/JobReach/internal/config"
	"github.com/shubhampawar7/JobReach/internal/mailer"
	"github.com/shubhampawar7/JobReach/internal/recipients"
	"github.com/shubhampawar7/JobReach/internal/render"
	"github.com/shubhampawar7/JobReach/internal/sendstate"
	"github.com/shubhampawar7/JobReach/pkg/logx"
)

// Trigger labels what started a run.
type Trigger string

const (
	TriggerManual   Trigger = "manual"
	TriggerWatch    Trigger = "watch"
	TriggerSchedule Trigger = "schedule"
)

// Result summarizes one run.
type Result struct {
	Recipients int
	Pending    int
	Sent       int
	Errored    int
	DryRun     bool
}

// ConnectFunc acquires the transport for one run.
type ConnectFunc func() (mailer.Sender, error)

type Engine struct {
	cfg   *config.Config
	log   logx.Logger
	audit audit.Log

	// Connect is swapped out by tests; New wires the real factory.
	connect ConnectFunc

	// runMu serializes runs within the process. Sends are sequential by
	// design (provider rate limits, predictable audit ordering).
	runMu sync.Mutex

	knownMu sync.Mutex
	known   map[string]struct{}
}

func New(cfg *config.Config, log logx.Logger, auditLog audit.Log) *Engine {
	e := &Engine{
		cfg:   cfg,
		log:   log,
		audit: auditLog,
		known: map[string]struct{}{},
	}
	e.connect = func() (mailer.Sender, error) {
		f := &mailer.Factory{Log: log}
		return f.Connect(
			mailer.Config{
				Host:   cfg.SMTP.Host,
				Port:   cfg.SMTP.Port,
				Secure: cfg.SMTP.Secure,
				User:   cfg.SMTP.User,
				Pass:   cfg.SMTP.Pass,
			},
			mailer.From{Email: cfg.From.Email, Name: cfg.From.Name},
		)
	}
	return e
}

// Run executes one dispatch pass.
//
// only restricts the run to a subset of recipients (the watcher passes the
// newly-appeared ones); nil means a full source snapshot. Individual send
// failures are recorded and do not abort the run; only transport
// acquisition failures do.
func (e *Engine) Run(ctx context.Context, trigger Trigger, only []recipients.Recipient) (Result, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	var res Result

	rs := only
	if rs == nil {
		rs = recipients.Load(e.cfg.Paths.Recipients)
	}
	res.Recipients = len(rs)
	if len(rs) == 0 {
		e.log.Info("no recipients found", logx.String("path", e.cfg.Paths.Recipients))
		return res, nil
	}

	store := sendstate.Load(e.cfg.Paths.State)
	pending := make([]recipients.Recipient, 0, len(rs))
	for _, r := range rs {
		if !store.IsSent(r.Email) {
			pending = append(pending, r)
		}
	}
	res.Pending = len(pending)
	if len(pending) == 0 {
		e.log.Info("no pending recipients; all already sent", logx.String("trigger", string(trigger)))
		return res, nil
	}

	e.log.Info("pending recipients",
		logx.Int("count", len(pending)),
		logx.String("trigger", string(trigger)),
	)

	if e.cfg.Deliver.DryRun {
		res.DryRun = true
		for _, r := range pending {
			e.log.Info("dry run; would send", logx.String("to", r.Email), logx.String("name", r.Name))
		}
		return res, nil
	}

	sender, err := e.connect()
	if err != nil {
		return res, err
	}
	defer sender.Close()

	// First token is available immediately; each subsequent Wait enforces
	// the configured inter-send pause.
	limiter := rate.NewLimiter(rate.Every(e.cfg.Delay()), 1)

	for _, r := range pending {
		if err := limiter.Wait(ctx); err != nil {
			return res, err
		}
		e.dispatchOne(ctx, sender, r, trigger, &res)
	}

	e.log.Info("run complete",
		logx.Int("sent", res.Sent),
		logx.Int("errored", res.Errored),
		logx.String("trigger", string(trigger)),
	)
	return res, nil
}

func (e *Engine) dispatchOne(ctx context.Context, sender mailer.Sender, r recipients.Recipient, trigger Trigger, res *Result) {
	msg := render.Build(render.Params{
		RecipientName:  r.Name,
		RecipientEmail: r.Email,
		Subject:        e.cfg.Message.Subject,
		Body:           e.cfg.Message.Body,
		Signature:      e.cfg.Message.Signature,
		SenderName:     e.cfg.From.Name,
	})

	e.log.Info("sending", logx.String("to", r.Email), logx.String("trigger", string(trigger)))
	result, err := sender.Send(&mailer.Mail{
		To:             r.Email,
		ToName:         r.Name,
		Subject:        msg.Subject,
		Text:           msg.Text,
		HTML:           msg.HTML,
		AttachmentPath: e.cfg.Paths.Resume,
	})

	if err != nil {
		res.Errored++
		e.log.Error("send failed", logx.String("to", r.Email), logx.Err(err))
		if serr := sendstate.MarkError(e.cfg.Paths.State, r.Email, sendstate.Detail{
			Error:   err.Error(),
			Trigger: string(trigger),
		}); serr != nil {
			e.log.Warn("send-state write failed", logx.String("email", r.Email), logx.Err(serr))
		}
		e.appendAudit(ctx, r, err.Error())
		return
	}

	res.Sent++
	e.log.Info("sent",
		logx.String("to", r.Email),
		logx.String("message_id", result.MessageID),
	)
	if serr := sendstate.MarkSent(e.cfg.Paths.State, r.Email, sendstate.Detail{
		MessageID: result.MessageID,
		Response:  result.Response,
		Trigger:   string(trigger),
	}); serr != nil {
		// The mail is out but the outcome could not be recorded; the next
		// run will retry this recipient.
		e.log.Warn("send-state write failed", logx.String("email", r.Email), logx.Err(serr))
	}
	e.appendAudit(ctx, r, "")
}

// appendAudit is best-effort: failures are logged and never affect the
// send outcome, which is persisted independently.
func (e *Engine) appendAudit(ctx context.Context, r recipients.Recipient, errText string) {
	if e.audit == nil {
		return
	}
	row := audit.Row{
		Email:   r.Email,
		Name:    r.Name,
		Subject: e.cfg.Message.Subject,
		Error:   errText,
	}
	if err := e.audit.Append(ctx, row); err != nil {
		e.log.Warn("audit append failed", logx.String("email", r.Email), logx.Err(err))
	}
}

// SeedKnown resets the last-known recipient set. Called once at process
// start before the watcher begins diffing.
func (e *Engine) SeedKnown(rs []recipients.Recipient) {
	e.knownMu.Lock()
	e.known = recipients.EmailSet(rs)
	e.knownMu.Unlock()
}

// DiffKnown replaces the last-known set with next and returns the entries
// that were not known before, in source order. Recipients seen in a
// previous diff cycle are never returned again, even if still pending.
func (e *Engine) DiffKnown(next []recipients.Recipient) []recipients.Recipient {
	e.knownMu.Lock()
	defer e.knownMu.Unlock()

	var added []recipients.Recipient
	for _, r := range next {
		if _, ok := e.known[r.Email]; !ok {
			added = append(added, r)
		}
	}
	e.known = recipients.EmailSet(next)
	return added
}
