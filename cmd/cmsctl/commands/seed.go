package commands

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"site-cms/internal/common/errors"
	"site-cms/internal/models"
	"site-cms/internal/sections"
)

// SeedFile is a YAML list of pages with their sections in display order.
//
//	pages:
//	  - page: {title: Home, slug: home, status: published, page_type: home}
//	    sections:
//	      - section_type: hero
//	        content: {headline: Welcome}
type SeedFile struct {
	Pages []SeedPage `yaml:"pages"`
}

type SeedPage struct {
	Page     models.PageMeta       `yaml:"page"`
	Sections []models.SectionInput `yaml:"sections"`
}

func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

// Validate rejects untitled pages, slugs repeated within the file and
// section types missing from the registry.
func (f *SeedFile) Validate() error {
	if len(f.Pages) == 0 {
		return fmt.Errorf("seed file contains no pages")
	}
	slugs := make(map[string]bool)
	for i, p := range f.Pages {
		if p.Page.Title == "" {
			return fmt.Errorf("pages[%d]: title is required", i)
		}
		slug := p.Page.Slug
		if slug == "" {
			slug = models.Slugify(p.Page.Title)
		}
		if slugs[slug] {
			return fmt.Errorf("pages[%d]: slug %q appears more than once", i, slug)
		}
		slugs[slug] = true

		for j, s := range p.Sections {
			if !sections.IsKnown(s.SectionType) {
				return fmt.Errorf("pages[%d].sections[%d]: unknown section type %q", i, j, s.SectionType)
			}
		}
	}
	return nil
}

var (
	seedDryRun       bool
	seedSkipExisting bool
	seedMigrate      bool
)

// NewSeedCommand creates the seed command
func NewSeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Create pages and sections from a YAML file",
		Long: `Create every page in a seed file together with its sections. Each page is
written in one transaction.

Examples:
  cmsctl seed seeds/marketing.yaml
  cmsctl seed seeds/marketing.yaml --dry-run
  cmsctl seed seeds/marketing.yaml --skip-existing`,
		Args: cobra.ExactArgs(1),
		RunE: runSeed,
	}

	cmd.Flags().BoolVar(&seedDryRun, "dry-run", false, "Validate the file without writing")
	cmd.Flags().BoolVar(&seedSkipExisting, "skip-existing", false, "Skip pages whose slug already exists")
	cmd.Flags().BoolVar(&seedMigrate, "migrate", false, "Apply the schema before seeding")

	return cmd
}

func runSeed(cmd *cobra.Command, args []string) error {
	file, err := LoadSeedFile(args[0])
	if err != nil {
		return err
	}
	if err := file.Validate(); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if seedDryRun {
		for _, p := range file.Pages {
			fmt.Fprintf(w, "would create %q with %d sections\n", p.Page.Title, len(p.Sections))
		}
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pages, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if seedMigrate {
		if err := pages.Migrate(ctx); err != nil {
			return err
		}
	}

	created := 0
	for _, p := range file.Pages {
		agg, err := pages.CreatePageWithSections(ctx, p.Page, p.Sections)
		if err != nil {
			if seedSkipExisting && stderrors.Is(err, errors.ErrDuplicateSlug) {
				fmt.Fprintf(w, "skipped %q (slug exists)\n", p.Page.Title)
				continue
			}
			return fmt.Errorf("seed %q: %w", p.Page.Title, err)
		}
		created++
		fmt.Fprintf(w, "✓ created /%s (%d sections)\n", agg.Page.Slug, len(agg.Sections))
	}
	fmt.Fprintf(w, "%d of %d pages created\n", created, len(file.Pages))
	return nil
}
