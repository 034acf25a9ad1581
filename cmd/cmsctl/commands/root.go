// Package commands holds the cmsctl subcommands.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"site-cms/internal/common/config"
	"site-cms/internal/common/database"
	"site-cms/internal/common/logger"
	"site-cms/internal/store"
)

var (
	configPath   string
	outputFormat string
)

// AddPersistentFlags registers the flags shared by every subcommand.
func AddPersistentFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: configs/config.yaml)")
	root.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text, json, yaml)")
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// cliLogger writes console logs to stderr so command output stays clean.
func cliLogger(cfg *config.Config) logger.Logger {
	return logger.NewStructured(cfg.Logging.Level, "console", "stderr")
}

// openStore connects to postgres; the returned func closes the connection.
func openStore(ctx context.Context, cfg *config.Config) (*store.PostgresStore, func(), error) {
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.Ping(ctx); err != nil {
		_ = pg.Close()
		return nil, nil, fmt.Errorf("postgres unreachable: %w", err)
	}
	return store.NewPostgresStore(pg), func() { _ = pg.Close() }, nil
}

// writeOutput encodes data as json or yaml. YAML goes through a JSON round
// trip so both formats share the json field names.
func writeOutput(w io.Writer, format string, data interface{}) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "yaml":
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		var generic interface{}
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		out, err := yaml.Marshal(generic)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
