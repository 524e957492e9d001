// Package main provides pucetctl, the operator CLI for schema, content and
// account maintenance.
package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pucet-prep/backend/internal/auth"
	"github.com/pucet-prep/backend/internal/config"
	"github.com/pucet-prep/backend/internal/content"
	"github.com/pucet-prep/backend/internal/database"
	"github.com/pucet-prep/backend/internal/logger"
	"github.com/pucet-prep/backend/internal/models"
	"github.com/pucet-prep/backend/internal/seed"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultCatalogPath = "seed/catalog.toml"

var (
	rollbackSteps int

	seedFile string

	premiumOff bool

	timingMinAttempts int
	timingApply       bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "pucetctl",
		Short:        "PU CET prep backend operator tool",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newMakeAdminCmd())
	rootCmd.AddCommand(newSetPremiumCmd())
	rootCmd.AddCommand(newListUsersCmd())
	rootCmd.AddCommand(newTimingCmd())

	return rootCmd
}

// env holds the connections a subcommand runs against.
type env struct {
	db     *sql.DB
	logger *zap.Logger
}

func (e *env) Close() {
	e.logger.Sync()
	e.db.Close()
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	// Operator runs log to the console only.
	cfg.Log.File = ""
	zlog := logger.New(cfg)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	return &env{db: db, logger: zlog}, nil
}

// ── migrate ────────────────────────────────────────────

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()
			if err := database.Migrate(e.db); err != nil {
				return err
			}
			return printVersion(cmd, e.db)
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()
			if err := database.Rollback(e.db, rollbackSteps); err != nil {
				return err
			}
			return printVersion(cmd, e.db)
		},
	}
	downCmd.Flags().IntVar(&rollbackSteps, "steps", 1, "number of migrations to roll back")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()
			return printVersion(cmd, e.db)
		},
	}

	migrateCmd.AddCommand(upCmd, downCmd, versionCmd)
	return migrateCmd
}

func printVersion(cmd *cobra.Command, db *sql.DB) error {
	version, dirty, err := database.Version(db)
	if err != nil {
		return err
	}
	suffix := ""
	if dirty {
		suffix = " (dirty)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d%s\n", version, suffix)
	return nil
}

// ── content ────────────────────────────────────────────

func newSeedCmd() *cobra.Command {
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load subjects, chapters and questions from a TOML catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := seed.Load(seedFile)
			if err != nil {
				return err
			}

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			svc := content.NewService(content.NewStore(e.db), e.logger.Named("content"))
			sum, err := seed.Apply(cmd.Context(), svc, cat, e.logger.Named("seed"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d subjects (%d skipped), %d chapters, %d questions\n",
				sum.Subjects, sum.Skipped, sum.Chapters, sum.Questions)
			return nil
		},
	}
	seedCmd.Flags().StringVar(&seedFile, "file", defaultCatalogPath, "catalog file")
	return seedCmd
}

func newTimingCmd() *cobra.Command {
	timingCmd := &cobra.Command{
		Use:   "timing-report",
		Short: "Compare labelled difficulty with observed accuracy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			svc := content.NewService(content.NewStore(e.db), e.logger.Named("content"))
			report, err := svc.TimingReport(cmd.Context(), timingMinAttempts, timingApply)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "QUESTION\tSUBJECT\tLABELLED\tSUGGESTED\tATTEMPTS\tACCURACY\tAVG TIME")
			for _, c := range report.Details {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%d\t%.0f%%\t%.1fs\n",
					c.QuestionID, c.SubjectID, c.LabeledDifficulty, c.SuggestedDifficulty,
					c.AttemptCount, c.Accuracy*100, c.AverageTime)
			}
			w.Flush()

			verb := "would change"
			if report.Applied {
				verb = "changed"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d evaluated, %d %s\n", report.TotalEvaluated, report.Mislabeled, verb)
			return nil
		},
	}
	timingCmd.Flags().IntVar(&timingMinAttempts, "min-attempts", content.DefaultMinAttempts, "ignore questions with fewer attempts")
	timingCmd.Flags().BoolVar(&timingApply, "apply", false, "write suggested difficulties")
	return timingCmd
}

// ── accounts ───────────────────────────────────────────

func newMakeAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "make-admin <email>",
		Short: "Grant the admin role to an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			email := normalizeEmail(args[0])
			if err := auth.NewStore(e.db).SetRole(cmd.Context(), email, models.RoleAdmin); err != nil {
				return accountError(email, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now an admin\n", email)
			return nil
		},
	}
}

func newSetPremiumCmd() *cobra.Command {
	premiumCmd := &cobra.Command{
		Use:   "set-premium <email>",
		Short: "Grant or revoke premium access",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			email := normalizeEmail(args[0])
			if err := auth.NewStore(e.db).SetPremium(cmd.Context(), email, !premiumOff); err != nil {
				return accountError(email, err)
			}
			state := "premium"
			if premiumOff {
				state = "free"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", email, state)
			return nil
		},
	}
	premiumCmd.Flags().BoolVar(&premiumOff, "off", false, "revoke premium instead of granting it")
	return premiumCmd
}

func newListUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-users",
		Short: "List accounts with their entitlement state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			learners, err := auth.NewStore(e.db).ListLearners(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tPREMIUM\tFREE TESTS")
			for _, l := range learners {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%d\n",
					l.ID, l.Email, l.FullName, l.Role, l.IsPremium, l.FreeTestsTaken)
			}
			return w.Flush()
		},
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func accountError(email string, err error) error {
	if errors.Is(err, auth.ErrNotFound) {
		return fmt.Errorf("no account with email %s", email)
	}
	return err
}
