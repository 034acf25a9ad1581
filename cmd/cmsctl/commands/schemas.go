package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"site-cms/internal/models"
	"site-cms/internal/sections"
)

// SchemaInfo is the structured form of one registry entry.
type SchemaInfo struct {
	Type        models.SectionType   `json:"type"`
	Label       string               `json:"label"`
	Description string               `json:"description"`
	Shape       string               `json:"shape"`
	Fields      []sections.FormField `json:"fields"`
	Default     models.Content       `json:"default"`
}

// NewSchemasCommand creates the schemas command
func NewSchemasCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schemas [type]",
		Short: "Show the section schema registry",
		Long: `List every section type with its field shape, or a single type.

Examples:
  cmsctl schemas
  cmsctl schemas hero -o yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSchemas,
	}
}

func runSchemas(cmd *cobra.Command, args []string) error {
	schemas := sections.All()
	if len(args) == 1 {
		s, err := sections.Lookup(models.SectionType(args[0]))
		if err != nil {
			return err
		}
		schemas = []*sections.Schema{s}
	}

	if outputFormat == "" || outputFormat == "text" {
		w := cmd.OutOrStdout()
		for _, s := range schemas {
			fmt.Fprintf(w, "%s (%s)\n  %s\n  %s\n", s.Label, s.Type, s.Description, sections.Describe(s))
		}
		return nil
	}

	infos := make([]SchemaInfo, 0, len(schemas))
	for _, s := range schemas {
		def, err := sections.DefaultContent(s.Type)
		if err != nil {
			return err
		}
		infos = append(infos, SchemaInfo{
			Type:        s.Type,
			Label:       s.Label,
			Description: s.Description,
			Shape:       sections.Describe(s),
			Fields:      sections.FormFields(s),
			Default:     def,
		})
	}
	return writeOutput(cmd.OutOrStdout(), outputFormat, infos)
}
