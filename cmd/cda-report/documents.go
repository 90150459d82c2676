package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/cdareport/internal/domain/imaging"
	"github.com/ehr/cdareport/internal/domain/report"
	"github.com/ehr/cdareport/internal/platform/archive"
	"github.com/ehr/cdareport/internal/platform/auth"
	"github.com/ehr/cdareport/internal/platform/cda"
)

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate, validate and archive the report for one study",
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, _ := cmd.Flags().GetString("patient")
			studyUID, _ := cmd.Flags().GetString("study")
			batchFile, _ := cmd.Flags().GetString("batch")
			toStdout, _ := cmd.Flags().GetBool("stdout")

			env, err := loadEnv()
			if err != nil {
				return err
			}
			prof, err := env.loadProfile(cmd)
			if err != nil {
				return err
			}

			ctx := context.Background()
			var source report.Source
			if batchFile != "" {
				source, err = batchSource(batchFile, env.logger)
				if err != nil {
					return err
				}
			} else {
				pool, err := env.openPool(ctx)
				if err != nil {
					return err
				}
				defer pool.Close()
				source = env.imagingService(pool)
			}

			store := archive.NewStore(prof.OutputPath)
			persist := !toStdout && store.Enabled()
			gen, _ := newGenerator(prof, env.logger)

			out, err := report.NewService(source, gen, store, env.logger).Produce(ctx, patientID, studyUID, persist)
			return writeOutcome(cmd.OutOrStdout(), cmd.ErrOrStderr(), out, err)
		},
	}
	cmd.Flags().String("patient", "", "Patient id")
	cmd.Flags().String("study", "", "Study instance UID")
	cmd.Flags().String("batch", "", "Read patients and studies from a YAML or JSON export instead of the database")
	cmd.Flags().Bool("stdout", false, "Print the document instead of archiving it")
	return cmd
}

func batchSource(name string, logger zerolog.Logger) (*imaging.Service, error) {
	data, err := readInput(name)
	if err != nil {
		return nil, err
	}
	b, err := imaging.DecodeBatch(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	patients, studies := imaging.NewMemoryRepos(b)
	return imaging.NewService(patients, studies, logger), nil
}

// writeOutcome prints the archived path or the document itself. Rejected
// documents print their diagnostics and end with exit status 2.
func writeOutcome(stdout, stderr io.Writer, out *report.Outcome, err error) error {
	if err != nil && !errors.Is(err, report.ErrRejected) {
		return err
	}
	if !out.Accepted() {
		printDiagnostics(stderr, out.Document.Validation)
		return &exitError{code: exitInvalid, msg: fmt.Sprintf("document %s failed schema validation", out.Document.DocumentID)}
	}
	if out.File != "" {
		fmt.Fprintf(stdout, "Report %s written to %s\n", out.Document.DocumentID, out.File)
		return nil
	}
	_, err = stdout.Write(out.Document.XML)
	return err
}

func printDiagnostics(w io.Writer, res *cda.ValidationResult) {
	if res == nil {
		return
	}
	for _, d := range res.Diagnostics {
		fmt.Fprintln(w, d.String())
	}
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a document against the CDA schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")

			env, err := loadEnv()
			if err != nil {
				return err
			}
			if schema == "" {
				prof, err := env.loadProfile(cmd)
				if err != nil {
					return err
				}
				schema = prof.CDAXSDPath
			}

			data, err := readInput(args[0])
			if err != nil {
				return err
			}

			res := cda.NewValidator(env.logger).Validate(data, schema)
			return writeVerdict(cmd.OutOrStdout(), args[0], res)
		},
	}
	cmd.Flags().String("schema", "", "Schema path or file:// URI; defaults to the profile's cda_xsd_path")
	return cmd
}

func writeVerdict(w io.Writer, name string, res cda.ValidationResult) error {
	switch {
	case res.Skipped:
		fmt.Fprintf(w, "%s: no schema configured, validation skipped\n", name)
		return nil
	case res.Valid:
		fmt.Fprintf(w, "%s: valid against %s\n", name, res.SchemaRef)
		printDiagnostics(w, &res)
		return nil
	default:
		fmt.Fprintf(w, "%s: INVALID against %s\n", name, res.SchemaRef)
		printDiagnostics(w, &res)
		return &exitError{code: exitInvalid, msg: fmt.Sprintf("%s failed schema validation", name)}
	}
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print a summary of a generated document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			summary, err := cda.NewParser().Parse(data)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		},
	}
}

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect the site profile",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective profile after environment overrides",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			prof, err := env.loadProfile(cmd)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), prof)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "defaults",
		Short: "Print the built-in values used when the profile leaves a field empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), cda.BuiltinDefaults())
		},
	})
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with AUTH_SIGNING_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			roles, _ := cmd.Flags().GetStringSlice("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			env, err := loadEnv()
			if err != nil {
				return err
			}
			if env.cfg.AuthSigningKey == "" {
				return fmt.Errorf("AUTH_SIGNING_KEY is required to issue tokens")
			}
			if subject == "" {
				return fmt.Errorf("--subject is required")
			}

			token, err := auth.IssueToken([]byte(env.cfg.AuthSigningKey), env.cfg.AuthIssuer, subject, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("subject", "", "Token subject (user id)")
	cmd.Flags().StringSlice("role", []string{auth.RoleViewer}, "Granted role; repeatable (admin, reporter, viewer)")
	cmd.Flags().Duration("ttl", 12*time.Hour, "Token lifetime")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
