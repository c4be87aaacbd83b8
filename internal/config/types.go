package config

// Config is the root of the jobreach config file (yaml or json).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging  LoggingConfig  `json:"logging,omitempty"`
	Paths    PathsConfig    `json:"paths"`
	SMTP     SMTPConfig     `json:"smtp"`
	From     FromConfig     `json:"from,omitempty"`
	Message  MessageConfig  `json:"message"`
	Deliver  DeliverConfig  `json:"deliver,omitempty"`
	Watch    WatchConfig    `json:"watch,omitempty"`
	Schedule ScheduleConfig `json:"schedule,omitempty"`
	Audit    *AuditConfig   `json:"audit,omitempty"`
}

type LoggingConfig struct {
	Level string `json:"level,omitempty"`

	// Console is a pointer so we can distinguish "omitted" (default true)
	// from an explicit false.
	Console *bool         `json:"console,omitempty"`
	File    LogFileConfig `json:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

type PathsConfig struct {
	// Recipients is the watched source file: one "email[,name]" per line.
	Recipients string `json:"recipients"`
	// State is the persisted send-state JSON document.
	State string `json:"state"`
	// Resume is attached to every outgoing message. Optional.
	Resume string `json:"resume,omitempty"`
}

type SMTPConfig struct {
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Secure bool   `json:"secure"`
	User   string `json:"user"`
	// Pass may be left empty in the file and supplied via SMTP_PASS.
	Pass string `json:"pass,omitempty"`
}

type FromConfig struct {
	// Email defaults to smtp.user when omitted.
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

type MessageConfig struct {
	Subject string `json:"subject"`
	// Body is the letter text. BodyFile, when set, is read at load time and
	// takes precedence over Body.
	Body     string `json:"body,omitempty"`
	BodyFile string `json:"body_file,omitempty"`
	// Signature lines appended below the body unless it already signs off.
	Signature []string `json:"signature,omitempty"`
}

// DeliverConfig controls the dispatch loop.
//
// Defaults (when fields are omitted/zero):
//   - delay: "1500ms"
//   - dry_run: false
type DeliverConfig struct {
	Delay  string `json:"delay,omitempty"`
	DryRun bool   `json:"dry_run,omitempty"`
}

// WatchConfig controls the recipient-file watcher.
//
// Debounce is the quiet period that coalesces a burst of file-change
// events into one reconciliation. Default "400ms".
type WatchConfig struct {
	Debounce string `json:"debounce,omitempty"`
}

// ScheduleConfig controls optional cron-triggered full runs.
//
// Example:
//
//	"schedule": { "enabled": true, "cron": "0 10 * * *", "timezone": "Asia/Kolkata" }
type ScheduleConfig struct {
	Enabled  bool   `json:"enabled,omitempty"`
	Cron     string `json:"cron,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// AuditConfig controls the optional audit log.
//
// Example:
//
//	"audit": { "driver": "file", "path": "./data/sent.csv" }
type AuditConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

func (c *Config) ConsoleLogging() bool {
	if c.Logging.Console == nil {
		return true
	}
	return *c.Logging.Console
}
