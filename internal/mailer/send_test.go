package mailer

import (
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shubhampawar7/JobReach/pkg/logx"
)

type captureSC struct {
	from string
	to   []string
	body strings.Builder
}

func (c *captureSC) Send(from string, to []string, msg io.WriterTo) error {
	c.from = from
	c.to = append([]string(nil), to...)
	_, err := msg.WriteTo(&c.body)
	return err
}

func (c *captureSC) Close() error { return nil }

func testTransport(sc *captureSC) *Transport {
	return &Transport{
		sc:       sc,
		endpoint: Endpoint{Host: "smtp.example.com", Port: 465, Secure: true},
		from:     From{Email: "me@example.com", Name: "Me"},
		log:      logx.Nop(),
	}
}

func TestSendAddressesAndResult(t *testing.T) {
	sc := &captureSC{}
	tr := testTransport(sc)

	res, err := tr.Send(&Mail{
		To:      "hr@corp.io",
		ToName:  "Priya",
		Subject: "Application",
		Text:    "hello",
		HTML:    "<p>hello</p>",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sc.from != "me@example.com" {
		t.Fatalf("from = %q", sc.from)
	}
	if len(sc.to) != 1 || sc.to[0] != "hr@corp.io" {
		t.Fatalf("to = %v", sc.to)
	}
	if !strings.HasPrefix(res.MessageID, "<") || !strings.HasSuffix(res.MessageID, "@example.com>") {
		t.Fatalf("message id = %q", res.MessageID)
	}
	if !strings.Contains(res.Response, "smtp.example.com:465") {
		t.Fatalf("response = %q", res.Response)
	}
	if !strings.Contains(sc.body.String(), "Subject: Application") {
		t.Fatalf("subject missing from wire message")
	}
}

func TestSendMissingAttachment(t *testing.T) {
	tr := testTransport(&captureSC{})
	_, err := tr.Send(&Mail{
		To:             "hr@corp.io",
		Subject:        "Application",
		Text:           "hello",
		AttachmentPath: filepath.Join(t.TempDir(), "missing.pdf"),
	})
	if err == nil {
		t.Fatal("expected error for missing attachment")
	}
	if !strings.Contains(err.Error(), "resume not found") {
		t.Fatalf("err = %v", err)
	}
}

func TestMessageIDFallbackDomain(t *testing.T) {
	id := messageID("not-an-address")
	if !strings.HasSuffix(id, "@localhost>") {
		t.Fatalf("id = %q", id)
	}
}
