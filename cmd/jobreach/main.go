// Command jobreach delivers a templated job-application email, with resume
// attached, to every pending recipient of a growing source file.
//
// Exit code is 0 for any run that completes, regardless of individual send
// failures; non-zero only when the engine cannot start at all (bad config,
// no reachable transport).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/shubhampawar7/JobReach/internal/audit"
	"github.com/shubhampawar7/JobReach/internal/config"
	"github.com/shubhampawar7/JobReach/internal/engine"
	"github.com/shubhampawar7/JobReach/internal/mailer"
	"github.com/shubhampawar7/JobReach/internal/recipients"
	"github.com/shubhampawar7/JobReach/internal/schedule"
	"github.com/shubhampawar7/JobReach/internal/sendstate"
	"github.com/shubhampawar7/JobReach/internal/watch"
	"github.com/shubhampawar7/JobReach/pkg/logx"
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:           "jobreach",
		Short:         "Outbound job-application email delivery engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "./jobreach.yaml", "path to config file (yaml or json)")
	root.AddCommand(newSendCmd(), newPendingCmd(), newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		var cerr *mailer.ConnectError
		if errors.As(err, &cerr) {
			fmt.Fprintln(os.Stderr, cerr.Guidance())
		}
		os.Exit(1)
	}
}

// bootstrap loads config and wires the logger and audit log.
func bootstrap() (*config.Config, logx.Logger, *logx.Service, audit.Log, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, logx.Logger{}, nil, nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	svc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.ConsoleLogging(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	var auditLog audit.Log
	if cfg.Audit != nil {
		auditLog, err = audit.Open(audit.Config{
			Driver:      cfg.Audit.Driver,
			Path:        cfg.Audit.Path,
			BusyTimeout: cfg.AuditBusyTimeout(),
		}, log)
		if err != nil {
			_ = svc.Close()
			return nil, logx.Logger{}, nil, nil, fmt.Errorf("open audit log: %w", err)
		}
	}
	return cfg, log, svc, auditLog, nil
}

func newSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send",
		Short: "Run one dispatch pass over all pending recipients",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, svc, auditLog, err := bootstrap()
			if err != nil {
				return err
			}
			defer svc.Close()
			if auditLog != nil {
				defer auditLog.Close()
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			eng := engine.New(cfg, log, auditLog)
			res, err := eng.Run(ctx, engine.TriggerManual, nil)
			if err != nil {
				return err
			}
			fmt.Printf("recipients=%d pending=%d sent=%d errored=%d dry_run=%t\n",
				res.Recipients, res.Pending, res.Sent, res.Errored, res.DryRun)
			return nil
		},
	}
}

func newPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List pending recipients without contacting the network",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config %s: %w", cfgPath, err)
			}

			rs := recipients.Load(cfg.Paths.Recipients)
			store := sendstate.Load(cfg.Paths.State)
			n := 0
			for _, r := range rs {
				if store.IsSent(r.Email) {
					continue
				}
				n++
				if r.Name != "" {
					fmt.Printf("%s (%s)\n", r.Email, r.Name)
				} else {
					fmt.Println(r.Email)
				}
			}
			fmt.Printf("pending=%d of %d\n", n, len(rs))
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Watch the recipient file and deliver to newly added recipients",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, svc, auditLog, err := bootstrap()
			if err != nil {
				return err
			}
			defer svc.Close()
			if auditLog != nil {
				defer auditLog.Close()
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			eng := engine.New(cfg, log, auditLog)

			// The known set starts from the current snapshot; only recipients
			// appended after this point are picked up by the watcher.
			eng.SeedKnown(recipients.Load(cfg.Paths.Recipients))

			var sched *schedule.Service
			if cfg.Schedule.Enabled {
				sched, err = schedule.New(eng, cfg.Schedule, log)
				if err != nil {
					return err
				}
				sched.Start(ctx)
				defer sched.Stop()
			}

			w := watch.New(eng, cfg.Paths.Recipients, cfg.Debounce(), log)

			// Best-effort readiness for systemd units; a no-op elsewhere.
			_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
			defer daemon.SdNotify(false, daemon.SdNotifyStopping)

			return w.Run(ctx)
		},
	}
}
