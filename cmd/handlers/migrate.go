package handlers

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"dealerstudio/internal/logger"
	"dealerstudio/internal/persistence"

	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate command for database migrations
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Manage the dealers, cars and content calendar schema.

Subcommands:
  up       Apply all pending migrations
  status   Show migration status
  rollback Roll back the last migration (use with caution!)

Applied migrations are tracked in the schema_migrations table and new ones
are applied in version order.

Examples:
  # Apply all pending migrations
  dealerstudio migrate up

  # Check migration status
  dealerstudio migrate status`,
	}

	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateStatusCmd())
	cmd.AddCommand(newMigrateRollbackCmd())

	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Long: `Apply all pending database migrations.

Each migration runs in its own transaction and is recorded in
schema_migrations once it commits.

Example:
  dealerstudio migrate up`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateUp(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateStatus(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func newMigrateRollbackCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Roll back the last migration",
		Long: `Roll back the last applied migration.

⚠️  WARNING: This only removes the migration record from schema_migrations.
    You must manually revert any database schema changes!

Use --force to skip the confirmation prompt.

Example:
  dealerstudio migrate rollback --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateRollback(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}

func openMigrator() (*persistence.MigrationManager, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	return persistence.NewMigrationManager(db), func() { _ = db.Close() }, nil
}

func runMigrateUp(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	migrator, closeDB, err := openMigrator()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintln(out, "✅ All migrations applied successfully")
	return nil
}

func runMigrateStatus(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	migrator, closeDB, err := openMigrator()
	if err != nil {
		return err
	}
	defer closeDB()

	status, err := migrator.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	fmt.Fprint(out, renderMigrationStatus(status))
	return nil
}

func renderMigrationStatus(status []persistence.MigrationStatus) string {
	if len(status) == 0 {
		return "No migrations found\n"
	}

	var b strings.Builder
	b.WriteString("📊 Migration Status\n")
	b.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "%-10s %-10s %s\n", "Version", "Status", "Description")
	b.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")

	applied, pending := 0, 0
	for _, m := range status {
		statusStr, statusIcon := "pending", "⏳"
		if m.Applied {
			statusStr, statusIcon = "applied", "✅"
			applied++
		} else {
			pending++
		}
		fmt.Fprintf(&b, "%-10d %s %-8s %s\n", m.Version, statusIcon, statusStr, m.Description)
	}

	fmt.Fprintf(&b, "\nApplied: %d | Pending: %d | Total: %d\n", applied, pending, len(status))
	if pending > 0 {
		b.WriteString("\nRun 'dealerstudio migrate up' to apply pending migrations\n")
	}
	return b.String()
}

func runMigrateRollback(ctx context.Context, in io.Reader, out io.Writer, force bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !force {
		fmt.Fprintln(out, "⚠️  WARNING: Rolling back migrations is dangerous!")
		fmt.Fprintln(out, "This will only remove the migration record from schema_migrations.")
		fmt.Fprintln(out, "You must manually revert any database schema changes.")
		fmt.Fprintln(out)
		fmt.Fprint(out, "Are you sure you want to proceed? (yes/no): ")

		response, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if strings.TrimSpace(response) != "yes" {
			fmt.Fprintln(out, "Rollback cancelled")
			return nil
		}
	}

	migrator, closeDB, err := openMigrator()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := migrator.Rollback(ctx); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	logger.Warn("Migration record removed - remember to manually revert database changes")
	fmt.Fprintln(out, "⚠️  Migration record removed")
	fmt.Fprintln(out, "You must manually revert database changes")
	return nil
}
