package main

import (
	"encoding/json/jsontext"
	"encoding/json/v2"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hermanshu/targ-site-sub000/internal/config"
	"github.com/hermanshu/targ-site-sub000/internal/di/providers"
	"github.com/hermanshu/targ-site-sub000/internal/logger"
	"github.com/hermanshu/targ-site-sub000/internal/store"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "favctl",
		Short:         "Inspect and repair stored favorites",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("env-file", ".env", "path to .env file")
	cmd.PersistentFlags().String("storage", "", "storage driver (overrides STORAGE_DRIVER)")
	cmd.PersistentFlags().String("storage-path", "", "database path (overrides STORAGE_PATH)")
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	cmd.PersistentFlags().Bool("verbose", false, "log at debug level")

	cmd.AddCommand(
		newInspectCmd(),
		newCheckCmd(),
		newTokenCmd(),
	)
	return cmd
}

// loadConfig reads the server configuration and applies the persistent
// flags on top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	envFile, _ := flags.GetString("env-file")

	args := []string{"-env-file=" + envFile}
	for _, f := range []struct{ name, flag string }{
		{"storage", "-storage="},
		{"storage-path", "-storage-path="},
		{"database-url", "-database-url="},
	} {
		if v, _ := flags.GetString(f.name); v != "" {
			args = append(args, f.flag+v)
		}
	}
	if verbose, _ := flags.GetBool("verbose"); verbose {
		args = append(args, "-log-level=debug")
	} else {
		args = append(args, "-log-level=warn")
	}

	return config.Load(args)
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *logger.Logger {
	return logger.New(logger.Config{
		Writer: cmd.ErrOrStderr(),
		Level:  logger.ParseLevel(cfg.Logger.Level),
		Format: "pretty",
	})
}

// openStore opens the configured store adapter.
func openStore(cmd *cobra.Command) (store.Adapter, *logger.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	log := newLogger(cmd, cfg)
	adapter, err := providers.OpenStore(cfg.Storage, log)
	if err != nil {
		return nil, nil, err
	}
	return adapter, log, nil
}

func writeJSON(w io.Writer, v any) error {
	if err := json.MarshalWrite(w, v, jsontext.WithIndent("  ")); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
