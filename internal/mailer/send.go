package mailer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/shubhampawar7/JobReach/pkg/logx"
)

// Transport is an open, verified session bound to one endpoint and one
// credential pair. It is owned by the dispatch run that created it and is
// not shared across runs.
type Transport struct {
	sc       gomail.SendCloser
	endpoint Endpoint
	fellBack bool
	from     From
	log      logx.Logger
}

func (t *Transport) Endpoint() Endpoint { return t.endpoint }

// FellBack reports whether this transport is bound to the implicit-TLS
// fallback endpoint rather than the configured one.
func (t *Transport) FellBack() bool { return t.fellBack }

func (t *Transport) Close() error { return t.sc.Close() }

// Send builds the MIME message and submits it over the open session.
func (t *Transport) Send(m *Mail) (Result, error) {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", t.from.Email, t.from.Name)
	if m.ToName != "" {
		msg.SetAddressHeader("To", m.To, m.ToName)
	} else {
		msg.SetHeader("To", m.To)
	}
	msg.SetHeader("Subject", m.Subject)

	id := messageID(t.from.Email)
	msg.SetHeader("Message-ID", id)

	msg.SetBody("text/plain", m.Text)
	if m.HTML != "" {
		msg.AddAlternative("text/html", m.HTML)
	}

	if m.AttachmentPath != "" {
		abs, err := filepath.Abs(m.AttachmentPath)
		if err != nil {
			return Result{}, err
		}
		if _, err := os.Stat(abs); err != nil {
			return Result{}, fmt.Errorf("resume not found at %s: %w", abs, err)
		}
		msg.Attach(abs)
	}

	if err := gomail.Send(t.sc, msg); err != nil {
		return Result{}, err
	}
	return Result{
		MessageID: id,
		Response:  "accepted by " + t.endpoint.String(),
	}, nil
}

// messageID builds an RFC 5322 Message-ID under the sender's domain.
// gomail does not set one itself and providers echo it back in receipts.
func messageID(fromEmail string) string {
	domain := "localhost"
	if i := strings.LastIndex(fromEmail, "@"); i >= 0 && i < len(fromEmail)-1 {
		domain = fromEmail[i+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}
