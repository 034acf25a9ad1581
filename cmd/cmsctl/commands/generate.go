package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"site-cms/internal/authoring"
	"site-cms/internal/common/errors"
	"site-cms/internal/generation"
	"site-cms/internal/llm"
	"site-cms/internal/models"
	"site-cms/internal/prompt"
)

var (
	generateInput     string
	generateWithStore bool
	generateCopyRaw   bool
)

// NewGenerateCommand creates the generate command
func NewGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <action>",
		Short: "Run a generation action against the configured provider",
		Long: `Run one generation action (page_content, section_content, page_regen, seo)
with a JSON or YAML payload file and print the parsed result. Nothing is saved.

When the model reply cannot be parsed, --copy-raw puts the raw reply on the
clipboard so it can be repaired by hand.

Examples:
  cmsctl generate page_content -f brief.yaml -o json
  cmsctl generate page_regen -f regen.yaml --with-store
  cmsctl generate seo -f post.json --copy-raw`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: actionNames(),
		RunE:      runGenerate,
	}

	cmd.Flags().StringVarP(&generateInput, "file", "f", "", "Payload file (JSON or YAML)")
	cmd.Flags().BoolVar(&generateWithStore, "with-store", false, "Read page context from postgres")
	cmd.Flags().BoolVar(&generateCopyRaw, "copy-raw", false, "Copy the raw reply to the clipboard on parse failure")

	return cmd
}

func actionNames() []string {
	actions := authoring.Actions()
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = string(a)
	}
	return out
}

// LoadPayload reads a payload file; YAML is a superset of JSON so both parse.
func LoadPayload(path string) (map[string]interface{}, error) {
	payload := map[string]interface{}{}
	if path == "" {
		return payload, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return payload, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	payload, err := LoadPayload(generateInput)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := cliLogger(cfg)
	ctx := context.Background()

	client, err := llm.New(ctx, cfg.LLM, log, nil)
	if err != nil {
		return err
	}
	defer client.Close()

	var opts []authoring.Option
	if generateWithStore {
		pages, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()
		opts = append(opts, authoring.WithStore(pages))
	}

	svc := authoring.NewService(
		prompt.NewBuilder(cfg.LLM.MaxTokensFor),
		client,
		generation.NewParser(cfg.LLM.StrictParse),
		log,
		opts...,
	)

	res, err := svc.Generate(ctx, models.GenerationAction(args[0]), payload)
	if err != nil {
		if raw, ok := errors.RawOutput(err); ok && generateCopyRaw {
			if cerr := clipboard.WriteAll(raw); cerr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "could not copy raw reply: %v\n", cerr)
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "raw reply (%d chars) copied to clipboard\n", len(raw))
			}
		}
		return err
	}

	format := outputFormat
	if format == "" || format == "text" {
		format = "yaml"
	}
	return writeOutput(cmd.OutOrStdout(), format, res.Value())
}
