package mailer

import (
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/shubhampawar7/JobReach/pkg/logx"
)

// DialFunc opens and verifies a session against one endpoint.
// Tests substitute this to simulate reachability and auth failures.
type DialFunc func(Config) (gomail.SendCloser, error)

// Factory acquires verified transports with the submission-port fallback
// policy applied.
type Factory struct {
	Log  logx.Logger
	Dial DialFunc // nil means the production gomail dialer
}

const (
	submissionPort  = 587 // STARTTLS upgrade in band
	implicitTLSPort = 465
)

// Connect validates cfg, dials the configured endpoint and returns an open
// transport.
//
// Fallback policy: when the configured mode is {587, secure=false} and the
// handshake fails with a reachability-class error (not an auth failure),
// one retry is made against the same host on {465, secure=true}. No further
// fallbacks are attempted.
func (f *Factory) Connect(cfg Config, from From) (*Transport, error) {
	if err := validate(cfg, from); err != nil {
		return nil, err
	}
	dial := f.Dial
	if dial == nil {
		dial = gomailDial
	}

	primary := Endpoint{Host: cfg.Host, Port: cfg.Port, Secure: cfg.Secure}
	sc, err := dial(cfg)
	if err == nil {
		return &Transport{sc: sc, endpoint: primary, from: from, log: f.Log}, nil
	}

	canFallback := cfg.Port == submissionPort && !cfg.Secure && isReachabilityErr(err)
	if !canFallback {
		return nil, &ConnectError{
			Primary:      EndpointError{Endpoint: primary, Err: err},
			Reachability: isReachabilityErr(err),
		}
	}

	fbCfg := cfg
	fbCfg.Port = implicitTLSPort
	fbCfg.Secure = true
	fallback := Endpoint{Host: fbCfg.Host, Port: fbCfg.Port, Secure: true}

	sc2, err2 := dial(fbCfg)
	if err2 != nil {
		return nil, &ConnectError{
			Primary:      EndpointError{Endpoint: primary, Err: err},
			Fallback:     &EndpointError{Endpoint: fallback, Err: err2},
			Reachability: true,
		}
	}

	f.Log.Warn("primary smtp endpoint unreachable; using implicit-TLS fallback",
		logx.String("primary", primary.String()),
		logx.String("fallback", fallback.String()),
		logx.Err(err),
	)
	return &Transport{sc: sc2, endpoint: fallback, fellBack: true, from: from, log: f.Log}, nil
}

func validate(cfg Config, from From) error {
	var missing []string
	if strings.TrimSpace(cfg.Host) == "" {
		missing = append(missing, "smtp.host")
	}
	if cfg.Port <= 0 {
		missing = append(missing, "smtp.port")
	}
	if strings.TrimSpace(cfg.User) == "" {
		missing = append(missing, "smtp.user")
	}
	if strings.TrimSpace(cfg.Pass) == "" {
		missing = append(missing, "smtp.pass")
	}
	if strings.TrimSpace(from.Email) == "" {
		missing = append(missing, "from.email")
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}
