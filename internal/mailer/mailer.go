// Package mailer establishes the SMTP transport and sends the rendered
// application email through it.
//
// One transport is acquired per dispatch run and reused for every send in
// that run. Establishing it performs a full dial + TLS + AUTH handshake so
// configuration and connectivity problems surface before the first
// recipient is touched.
package mailer

import (
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

// Config is the SMTP submission endpoint and credential pair.
type Config struct {
	Host   string
	Port   int
	Secure bool // implicit TLS (465-style); false means STARTTLS upgrade
	User   string
	Pass   string
}

// From is the sender identity placed on outgoing mail.
type From struct {
	Email string
	Name  string
}

// Endpoint identifies one {host, port, security-mode} tuple.
type Endpoint struct {
	Host   string
	Port   int
	Secure bool
}

func (ep Endpoint) String() string {
	return fmt.Sprintf("%s:%d (secure=%t)", ep.Host, ep.Port, ep.Secure)
}

// Mail is one outgoing message, already rendered.
type Mail struct {
	To             string
	ToName         string
	Subject        string
	Text           string
	HTML           string
	AttachmentPath string
}

// Result is the provider metadata recorded for a successful send.
type Result struct {
	MessageID string
	Response  string
}

// Sender is the open transport handle used by the dispatch loop.
// *Transport is the production implementation; tests substitute fakes.
type Sender interface {
	Send(m *Mail) (Result, error)
	Endpoint() Endpoint
	Close() error
}

// ConfigError reports required SMTP settings that are absent.
// It is fatal to starting a run and never retried automatically.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing smtp config: " + strings.Join(e.Missing, ", ")
}

// EndpointError is one failed connection attempt.
type EndpointError struct {
	Endpoint Endpoint
	Err      error
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("%s -> %v", e.Endpoint, e.Err)
}

func (e *EndpointError) Unwrap() error { return e.Err }

// ConnectError reports that no transport could be established, after the
// fallback policy was exhausted. Reachability distinguishes network-level
// failures (refused, unreachable, timeout, DNS) from protocol or auth
// failures so the caller can give actionable guidance.
type ConnectError struct {
	Primary      EndpointError
	Fallback     *EndpointError // nil when no fallback was attempted
	Reachability bool
}

func (e *ConnectError) Error() string {
	var b strings.Builder
	b.WriteString("smtp connection failed")
	if e.Reachability {
		b.WriteString(" (network reachability)")
	}
	fmt.Fprintf(&b, ": primary %s", e.Primary.Error())
	if e.Fallback != nil {
		fmt.Fprintf(&b, "; fallback %s", e.Fallback.Error())
	}
	return b.String()
}

func (e *ConnectError) Unwrap() error { return e.Primary.Err }

// Guidance returns operator-facing advice matching the failure class.
func (e *ConnectError) Guidance() string {
	if !e.Reachability {
		return "Check the SMTP credentials and host settings."
	}
	if e.Fallback != nil {
		return "This is a network reachability problem, not an auth/password issue. " +
			"If you are on VPN or corporate Wi-Fi, or your ISP blocks SMTP submission ports, " +
			"switch networks or use an email provider API instead of direct SMTP."
	}
	return "Your network cannot reach the SMTP server on that port. " +
		"Try port 465 with secure=true, disable any VPN, or switch networks."
}

// gomailDial is the production DialFunc: full connect + TLS + AUTH.
func gomailDial(cfg Config) (gomail.SendCloser, error) {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	d.SSL = cfg.Secure
	return d.Dial()
}
