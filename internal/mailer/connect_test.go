package mailer

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
	"testing"

	"gopkg.in/gomail.v2"

	"github.com/shubhampawar7/JobReach/pkg/logx"
)

type fakeSC struct{ closed bool }

func (f *fakeSC) Send(from string, to []string, msg io.WriterTo) error { return nil }
func (f *fakeSC) Close() error                                         { f.closed = true; return nil }

func goodConfig() Config {
	return Config{Host: "smtp.example.com", Port: 587, Secure: false, User: "u@example.com", Pass: "secret"}
}

func refusedErr() error {
	return &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: os.NewSyscallError("connect", syscall.ECONNREFUSED),
	}
}

func TestConnectMissingConfig(t *testing.T) {
	f := &Factory{Log: logx.Nop()}
	_, err := f.Connect(Config{Port: 587}, From{})

	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	want := map[string]bool{"smtp.host": true, "smtp.user": true, "smtp.pass": true, "from.email": true}
	if len(cerr.Missing) != len(want) {
		t.Fatalf("missing = %v", cerr.Missing)
	}
	for _, m := range cerr.Missing {
		if !want[m] {
			t.Fatalf("unexpected missing field %q in %v", m, cerr.Missing)
		}
	}
}

func TestConnectPrimarySucceeds(t *testing.T) {
	var dialed []Config
	f := &Factory{Log: logx.Nop(), Dial: func(cfg Config) (gomail.SendCloser, error) {
		dialed = append(dialed, cfg)
		return &fakeSC{}, nil
	}}

	tr, err := f.Connect(goodConfig(), From{Email: "u@example.com"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if len(dialed) != 1 {
		t.Fatalf("expected 1 dial, got %d", len(dialed))
	}
	if tr.FellBack() {
		t.Fatal("no fallback expected")
	}
	if ep := tr.Endpoint(); ep.Port != 587 || ep.Secure {
		t.Fatalf("endpoint = %+v", ep)
	}
}

func TestConnectFallsBackOnReachabilityFailure(t *testing.T) {
	var dialed []Config
	f := &Factory{Log: logx.Nop(), Dial: func(cfg Config) (gomail.SendCloser, error) {
		dialed = append(dialed, cfg)
		if cfg.Port == 587 {
			return nil, refusedErr()
		}
		return &fakeSC{}, nil
	}}

	tr, err := f.Connect(goodConfig(), From{Email: "u@example.com"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if len(dialed) != 2 {
		t.Fatalf("expected 2 dials, got %d", len(dialed))
	}
	if dialed[1].Port != 465 || !dialed[1].Secure {
		t.Fatalf("fallback dialed %+v, want 465/secure", dialed[1])
	}
	if !tr.FellBack() {
		t.Fatal("FellBack must report the fallback")
	}
	if ep := tr.Endpoint(); ep.Port != 465 || !ep.Secure || ep.Host != "smtp.example.com" {
		t.Fatalf("endpoint = %+v", ep)
	}
}

func TestConnectBothEndpointsFail(t *testing.T) {
	f := &Factory{Log: logx.Nop(), Dial: func(cfg Config) (gomail.SendCloser, error) {
		return nil, refusedErr()
	}}

	_, err := f.Connect(goodConfig(), From{Email: "u@example.com"})
	var cerr *ConnectError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConnectError, got %v", err)
	}
	if cerr.Fallback == nil {
		t.Fatal("fallback attempt must be recorded")
	}
	if !cerr.Reachability {
		t.Fatal("reachability classification expected")
	}
	if cerr.Primary.Endpoint.Port != 587 || cerr.Fallback.Endpoint.Port != 465 {
		t.Fatalf("endpoints = %+v / %+v", cerr.Primary.Endpoint, cerr.Fallback.Endpoint)
	}
}

func TestConnectNoFallbackOnAuthFailure(t *testing.T) {
	var dials int
	f := &Factory{Log: logx.Nop(), Dial: func(cfg Config) (gomail.SendCloser, error) {
		dials++
		return nil, errors.New("535 5.7.8 username and password not accepted")
	}}

	_, err := f.Connect(goodConfig(), From{Email: "u@example.com"})
	var cerr *ConnectError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConnectError, got %v", err)
	}
	if dials != 1 {
		t.Fatalf("auth failure must not trigger fallback, dialed %d times", dials)
	}
	if cerr.Fallback != nil {
		t.Fatal("no fallback attempt expected")
	}
	if cerr.Reachability {
		t.Fatal("auth failure must not classify as reachability")
	}
}

func TestConnectNoFallbackFromImplicitTLS(t *testing.T) {
	var dials int
	f := &Factory{Log: logx.Nop(), Dial: func(cfg Config) (gomail.SendCloser, error) {
		dials++
		return nil, refusedErr()
	}}

	cfg := goodConfig()
	cfg.Port = 465
	cfg.Secure = true
	_, err := f.Connect(cfg, From{Email: "u@example.com"})
	var cerr *ConnectError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConnectError, got %v", err)
	}
	if dials != 1 {
		t.Fatalf("465/secure must not fall back, dialed %d times", dials)
	}
	if !cerr.Reachability {
		t.Fatal("refused dial must classify as reachability")
	}
}

func TestIsReachabilityErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"refused", refusedErr(), true},
		{"unreachable", &net.OpError{Op: "dial", Err: syscall.ENETUNREACH}, true},
		{"dns", &net.DNSError{Err: "no such host", Name: "smtp.example.com", IsNotFound: true}, true},
		{"dns timeout", &net.DNSError{Err: "i/o timeout", Name: "smtp.example.com", IsTimeout: true}, true},
		{"auth", errors.New("535 authentication failed"), false},
		{"tls", errors.New("tls: first record does not look like a TLS handshake"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isReachabilityErr(tt.err); got != tt.want {
				t.Fatalf("isReachabilityErr(%v) = %t, want %t", tt.err, got, tt.want)
			}
		})
	}
}
