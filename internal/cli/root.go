package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/hrdesk"
	"github.com/MrEthical07/hrdesk/guard"
	"github.com/MrEthical07/hrdesk/internal/logging"
	"github.com/MrEthical07/hrdesk/session"
)

// annotationNoClient marks commands that run without an hrdesk client.
const annotationNoClient = "hrdesk/no-client"

var errLoginRequired = errors.New("not logged in: run 'hrdesk login' first")

type app struct {
	configPath  string
	baseURL     string
	persistence string
	stateDir    string
	auditLog    string
	debug       bool
	logLevel    string
	logFormat   string

	lookupEnv func(string) (string, bool)

	logger    *slog.Logger
	client    *hrdesk.Client
	auditFile *os.File
}

// Execute runs the hrdesk CLI with the process arguments. The client opened
// for the command is closed even when the command fails.
func Execute(ctx context.Context) error {
	a := &app{lookupEnv: os.LookupEnv}
	err := newRootCmd(a).ExecuteContext(ctx)
	return errors.Join(err, a.close())
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "hrdesk",
		Short: "hrdesk is a terminal client for the HR task desk",
		Long:  "hrdesk signs in to the HR desk backend, keeps the session fresh, and manages tasks and employee records.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := cmd.Annotations[annotationNoClient]; ok {
				a.logger = logging.NewLoggerWithWriter(a.level(nil), a.logFormat, cmd.ErrOrStderr())
				return nil
			}
			return a.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (.yaml, .yml, .json, .jsonc)")
	flags.StringVar(&a.baseURL, "base-url", "", "Backend URL (overrides config and HRDESK_BASE_URL)")
	flags.StringVar(&a.persistence, "persistence", "", "Token storage: memory, file, redis, sqlite, postgres")
	flags.StringVar(&a.stateDir, "state-dir", "", "Directory of the file persistence backend")
	flags.StringVar(&a.auditLog, "audit-log", "", "Append audit events as JSON lines to this file")
	flags.BoolVar(&a.debug, "debug", false, "Enable debug logging")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format (text, json)")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newTasksCmd(a),
		newUsersCmd(a),
		newDepartmentsCmd(a),
		newRolesCmd(a),
		newMetricsCmd(a),
		newDevBackendCmd(a),
	)
	return root
}

func (a *app) level(cfg *hrdesk.Config) slog.Level {
	if a.debug {
		return slog.LevelDebug
	}
	if a.logLevel == "" && cfg != nil {
		return logging.ParseLevel(cfg.Log.Level)
	}
	return logging.ParseLevel(a.logLevel)
}

func (a *app) loadConfig() (hrdesk.Config, error) {
	cfg := hrdesk.DefaultConfig()
	if a.configPath != "" {
		loaded, err := hrdesk.LoadConfigFile(a.configPath)
		if err != nil {
			return hrdesk.Config{}, err
		}
		cfg = loaded
	}
	if err := hrdesk.ApplyEnv(&cfg, a.lookupEnv); err != nil {
		return hrdesk.Config{}, err
	}
	if a.baseURL != "" {
		cfg.BaseURL = a.baseURL
	}
	if a.persistence != "" {
		cfg.Persistence.Backend = a.persistence
	}
	if a.stateDir != "" {
		cfg.Persistence.Dir = a.stateDir
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	return cfg, nil
}

// open builds the client, restores the persisted session, and prints
// listener notices on stderr.
func (a *app) open(cmd *cobra.Command) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.logger = logging.NewLoggerWithWriter(a.level(&cfg), cfg.Log.Format, cmd.ErrOrStderr())

	for _, w := range cfg.Lint() {
		a.logger.Warn("config warning", "code", w.Code, "message", w.Message)
	}

	var sink hrdesk.AuditSink
	if a.auditLog != "" {
		f, err := os.OpenFile(a.auditLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		a.auditFile = f
		cfg.Audit.Enabled = true
		sink = hrdesk.NewJSONWriterSink(f)
	}

	stderr := cmd.ErrOrStderr()
	b := hrdesk.New().
		WithConfig(cfg).
		WithLogger(a.logger).
		WithListener(hrdesk.ListenerFuncs{
			OnSessionExpired: func(error) {
				fmt.Fprintln(stderr, "notice:", cfg.Messages.SessionExpired)
			},
			OnPermissionDenied: func(msg string) {
				fmt.Fprintln(stderr, "notice:", msg)
			},
		})
	if sink != nil {
		b = b.WithAuditSink(sink)
	}

	client, err := b.BuildContext(cmd.Context())
	if err != nil {
		return err
	}
	a.client = client

	if _, err := client.Bootstrap(cmd.Context()); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	return nil
}

func (a *app) close() error {
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close())
		a.client = nil
	}
	if a.auditFile != nil {
		errs = append(errs, a.auditFile.Close())
		a.auditFile = nil
	}
	return errors.Join(errs...)
}

// requireSession gates commands that need a signed-in user.
func (a *app) requireSession(cmd *cobra.Command) (session.Snapshot, error) {
	g := guard.New(a.client.Store())
	d, err := g.Wait(cmd.Context())
	if err != nil {
		return session.Snapshot{}, err
	}
	switch d {
	case guard.Render:
		return a.client.Session(), nil
	case guard.Redirect:
		return session.Snapshot{}, errLoginRequired
	default:
		return session.Snapshot{}, fmt.Errorf("session not ready: %s", d)
	}
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
