package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	ra "site-cms/internal/workers/content/regen-apply"
	rp "site-cms/internal/workers/content/regen-preview"
	sr "site-cms/internal/workers/content/search-reindex"
	"site-cms/pkg/registry"
)

// TaskTypes are the job types cms-server can register.
var TaskTypes = []string{rp.TaskType, ra.TaskType, sr.TaskType}

var registryPath string

// NewWorkersCommand creates the workers command
func NewWorkersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "Inspect the BPMN activity registry",
	}
	cmd.PersistentFlags().StringVar(&registryPath, "registry", registry.DefaultPath, "Path to registry file")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered activities",
		Args:  cobra.NoArgs,
		RunE:  runWorkersList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the registry and check every worker is registered",
		Args:  cobra.NoArgs,
		RunE:  runWorkersValidate,
	})
	return cmd
}

func runWorkersList(cmd *cobra.Command, args []string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if outputFormat == "json" || outputFormat == "yaml" {
		return writeOutput(cmd.OutOrStdout(), outputFormat, reg.Activities)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK TYPE\tSTATUS\tTIMEOUT\tRETRIES")
	for _, a := range reg.Activities {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", a.TaskType, a.ImplementationStatus, a.Timeout, a.Retries)
	}
	return tw.Flush()
}

func runWorkersValidate(cmd *cobra.Command, args []string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}
	if missing := reg.Missing(TaskTypes...); len(missing) > 0 {
		return fmt.Errorf("workers without a registry entry: %v", missing)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed (%d activities).\n", len(reg.Activities))
	return nil
}
