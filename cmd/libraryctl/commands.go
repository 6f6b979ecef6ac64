package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/noah-isme/biblioteca-api/internal/models"
	"github.com/noah-isme/biblioteca-api/internal/parity"
	"github.com/noah-isme/biblioteca-api/internal/repository"
	"github.com/noah-isme/biblioteca-api/internal/service"
	"github.com/noah-isme/biblioteca-api/migrations"
	"github.com/noah-isme/biblioteca-api/pkg/config"
	"github.com/noah-isme/biblioteca-api/pkg/database"
	"github.com/noah-isme/biblioteca-api/pkg/export"
	"github.com/noah-isme/biblioteca-api/pkg/logger"
)

// env is the shared state built lazily by commands that touch the database.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logr, db: db}, nil
}

func (e *env) close() {
	_ = e.db.Close()
	_ = e.logger.Sync()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "libraryctl",
		Short:         "Operator tasks for the library API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newRehashCmd(), newHashPasswordCmd(), newOverdueCmd(), newCompareCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if printOnly {
				_, err := io.WriteString(cmd.OutOrStdout(), migrations.Schema())
				return err
			}
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()
			if err := migrations.Apply(cmd.Context(), e.db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "print the schema instead of applying it")
	return cmd
}

func newRehashCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "rehash-passwords",
		Short: "Replace plaintext passwords with bcrypt hashes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			rehasher := service.NewPasswordRehasher(repository.NewUserRepository(e.db), e.logger)
			res, err := rehasher.Run(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "found=%d updated=%d skipped=%d dry_run=%t\n", res.Found, res.Updated, res.Skipped, dryRun)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without writing")
	return cmd
}

// readPassword prompts without echo when stdin is a terminal.
var readPassword = func(prompt string, out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("hash-password needs an interactive terminal")
	}
	fmt.Fprint(out, prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for a password read from the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plain, err := readPassword("Password: ", cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if plain == "" {
				return errors.New("empty password")
			}
			hash, err := service.HashPassword(plain)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newOverdueCmd() *cobra.Command {
	var (
		at     string
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "Export loans past their due date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ref, err := parseReference(at, time.Now())
			if err != nil {
				return err
			}
			if format != "csv" && format != "pdf" {
				return fmt.Errorf("unknown format %q", format)
			}

			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			loans := repository.NewLoanRequestRepository(e.db)
			svc := service.NewOverdueService(loans, repository.NewBookRepository(e.db), e.cfg.Loans.Location(), e.logger,
				export.NewCSVExporter(), export.NewPDFExporter())

			var payload []byte
			if format == "pdf" {
				payload, err = svc.PDF(cmd.Context(), ref)
			} else {
				payload, err = svc.CSV(cmd.Context(), ref)
			}
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(payload)
				return err
			}
			return os.WriteFile(output, payload, 0o644)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "reference instant (RFC 3339 or YYYY-MM-DD), default now")
	cmd.Flags().StringVar(&format, "format", "csv", "csv or pdf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

// parseReference reads --at. A bare date means the start of that day in UTC.
func parseReference(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at value %q", raw)
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC), nil
}

func newCompareCmd() *cobra.Command {
	var (
		goBase     string
		legacyBase string
		targets    string
		token      string
		timeout    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Replay requests against this API and the legacy backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := parity.LoadTargets(targets)
			if err != nil {
				return err
			}
			header := http.Header{}
			if token != "" {
				header.Set("Authorization", "Bearer "+token)
			}
			c := parity.NewComparer(&http.Client{Timeout: timeout}, goBase, legacyBase, header)
			report := c.Run(cmd.Context(), list)
			parity.WriteReport(cmd.OutOrStdout(), report)
			if report.Breaking > 0 {
				return fmt.Errorf("%d breaking differences", report.Breaking)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&goBase, "go-base", "http://localhost:8080/api", "base URL of this API")
	cmd.Flags().StringVar(&legacyBase, "legacy-base", "http://localhost:3000/api", "base URL of the legacy backend")
	cmd.Flags().StringVar(&targets, "targets", "scripts/parity_targets.json", "JSON targets file")
	cmd.Flags().StringVar(&token, "token", "", "bearer token sent to both backends")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "per-request timeout")
	return cmd
}
