package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ehr/cdareport/internal/domain/imaging"
	"github.com/ehr/cdareport/internal/platform/db"
)

func patientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "Browse patients",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "search [TERM]",
		Short: "Search patients by name or id; no term or \"all\" lists everyone",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := env.openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			patients, err := env.imagingService(pool).SearchPatients(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printPatients(cmd.OutOrStdout(), patients)
			return nil
		},
	})
	return cmd
}

func printPatients(w io.Writer, patients []*imaging.Patient) {
	if len(patients) == 0 {
		fmt.Fprintln(w, "No patients found.")
		return
	}
	fmt.Fprintf(w, "%-16s %-32s %-10s %s\n", "ID", "NAME", "BORN", "SEX")
	for _, p := range patients {
		fmt.Fprintf(w, "%-16s %-32s %-10s %s\n", p.ID, p.Name, p.BirthDate, p.Sex)
	}
}

func studiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "studies",
		Short: "Browse imaging studies",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list PATIENT_ID",
		Short: "List the studies of a patient, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := env.openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			studies, err := env.imagingService(pool).ListStudies(ctx, args[0])
			if err != nil {
				return err
			}
			printStudies(cmd.OutOrStdout(), studies)
			return nil
		},
	})
	return cmd
}

func printStudies(w io.Writer, studies []*imaging.Study) {
	if len(studies) == 0 {
		fmt.Fprintln(w, "No studies found.")
		return
	}
	fmt.Fprintf(w, "%-40s %-12s %-10s %-4s %s\n", "STUDY UID", "ACCESSION", "DATE", "MOD", "DESCRIPTION")
	for _, s := range studies {
		fmt.Fprintf(w, "%-40s %-12s %-10s %-4s %s\n", s.InstanceUID, s.AccessionNumber, s.Date, s.Modality, s.Description)
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Load patients and studies from a YAML or JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			b, err := imaging.DecodeBatch(bytes.NewReader(data))
			if err != nil {
				return err
			}

			env, err := loadEnv()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := env.openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := env.imagingService(pool).Import(ctx, b); err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d patient(s) and %d study(ies).\n", len(b.Patients), len(b.Studies))
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := cmd.Flags().GetInt("to")

			env, err := loadEnv()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := env.openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, db.Migrations())
			var count int
			if target > 0 {
				count, err = migrator.UpTo(ctx, target)
			} else {
				count, err = migrator.Up(ctx)
			}
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().Int("to", 0, "Stop after this version (0 applies everything)")
	cmd.AddCommand(upCmd)

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := env.openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, db.Migrations()).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printMigrations(cmd.OutOrStdout(), statuses)
			return nil
		},
	})

	return cmd
}

func printMigrations(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}
