package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/cdareport/internal/config"
	"github.com/ehr/cdareport/internal/domain/imaging"
	"github.com/ehr/cdareport/internal/platform/cda"
	"github.com/ehr/cdareport/internal/platform/db"
	"github.com/ehr/cdareport/internal/profile"
)

// exitInvalid is the process status for documents that fail validation.
const exitInvalid = 2

// exitError carries a process status other than 1 out of a command.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cda-report",
		Short:         "Imaging report CDA generator",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().String("profile", "", "Site profile (.yaml, .json, .toml or legacy .xml); defaults to PROFILE_PATH")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(patientsCmd())
	rootCmd.AddCommand(studiesCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(tokenCmd())
	return rootCmd
}

// env is the process configuration shared by every command.
type env struct {
	cfg    *config.Config
	logger zerolog.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: newLogger(cfg, os.Stderr)}, nil
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: out}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// loadProfile reads the site profile named by --profile or PROFILE_PATH. A
// missing file leaves every setting to the built-in defaults.
func (e *env) loadProfile(cmd *cobra.Command) (cda.Profile, error) {
	path, _ := cmd.Flags().GetString("profile")
	if path == "" {
		path = e.cfg.ProfilePath
	}
	overrides := profile.Overrides{CDAXSDPath: e.cfg.CDAXSDPath, OutputPath: e.cfg.OutputPath}

	p, err := profile.Load(path, overrides)
	if errors.Is(err, os.ErrNotExist) {
		e.logger.Warn().Str("path", path).Msg("profile not found, using built-in defaults")
		return profile.Apply(cda.Profile{}, overrides), nil
	}
	if err != nil {
		return cda.Profile{}, err
	}
	e.logger.Debug().Str("path", path).Msg("profile loaded")
	return p, nil
}

func (e *env) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if err := e.cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	return db.NewPool(ctx, e.cfg.DatabaseURL, db.PoolOptions{
		MaxConns: e.cfg.DBMaxConns,
		MinConns: e.cfg.DBMinConns,
	}, e.logger)
}

func (e *env) imagingService(pool *pgxpool.Pool) *imaging.Service {
	svc := imaging.NewService(imaging.NewPatientRepo(pool), imaging.NewStudyRepo(pool), e.logger)
	return svc.WithTx(func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	})
}

func newGenerator(p cda.Profile, logger zerolog.Logger) (*cda.Generator, *cda.Validator) {
	v := cda.NewValidator(logger)
	return cda.NewGenerator(p, cda.WithLogger(logger), cda.WithValidator(v)), v
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}
