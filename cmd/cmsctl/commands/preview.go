package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"site-cms/internal/models"
	"site-cms/internal/render"
	"site-cms/internal/resolver"
)

var (
	previewSlug  string
	previewWidth int
	previewHTML  bool
)

// NewPreviewCommand creates the preview command
func NewPreviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview [seed.yaml]",
		Short: "Render pages in the terminal",
		Long: `Render the pages of a seed file, or a stored page by slug, as the site would
lay them out. Unknown section types are skipped exactly as on the site.

Examples:
  cmsctl preview seeds/marketing.yaml
  cmsctl preview --slug home
  cmsctl preview --slug promo --html`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (previewSlug == "") {
				return fmt.Errorf("pass either a seed file or --slug")
			}
			return nil
		},
		RunE: runPreview,
	}

	cmd.Flags().StringVar(&previewSlug, "slug", "", "Preview a stored page (drafts included)")
	cmd.Flags().IntVarP(&previewWidth, "width", "w", 80, "Terminal width")
	cmd.Flags().BoolVar(&previewHTML, "html", false, "Print HTML fragments instead")

	return cmd
}

func runPreview(cmd *cobra.Command, args []string) error {
	var aggregates []*models.PageWithSections
	if previewSlug != "" {
		agg, err := loadStoredPage(previewSlug)
		if err != nil {
			return err
		}
		aggregates = append(aggregates, agg)
	} else {
		file, err := LoadSeedFile(args[0])
		if err != nil {
			return err
		}
		aggregates = SeedAggregates(file)
	}

	d := render.NewDispatcher(nil)
	w := cmd.OutOrStdout()
	for _, agg := range aggregates {
		blocks := d.RenderPage(agg.Sections)
		fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("/%s  %s  [%s]", agg.Page.Slug, agg.Page.Title, agg.Page.Status)))
		if previewHTML {
			for _, f := range d.HTMLPage(blocks) {
				fmt.Fprintln(w, f.HTML)
			}
			continue
		}
		fmt.Fprintln(w, RenderTerminal(blocks, previewWidth))
	}
	return nil
}

func loadStoredPage(slug string) (*models.PageWithSections, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	pages, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	return resolver.New(pages, nil, cliLogger(cfg)).Resolve(ctx, slug, resolver.Options{Preview: true})
}

// SeedAggregates turns seed pages into unsaved aggregates for rendering.
func SeedAggregates(file *SeedFile) []*models.PageWithSections {
	out := make([]*models.PageWithSections, 0, len(file.Pages))
	for _, p := range file.Pages {
		meta := p.Page.Normalize()
		if meta.Slug == "" {
			meta.Slug = models.Slugify(meta.Title)
		}
		page := &models.Page{
			Title:           meta.Title,
			Slug:            meta.Slug,
			Status:          meta.Status,
			MetaTitle:       meta.MetaTitle,
			MetaDescription: meta.MetaDescription,
			PageType:        meta.PageType,
		}
		secs := make([]*models.Section, len(p.Sections))
		for i, s := range p.Sections {
			secs[i] = &models.Section{
				ID:           strconv.Itoa(i),
				SectionType:  s.SectionType,
				Content:      s.Content,
				DisplayOrder: i,
			}
		}
		out = append(out, &models.PageWithSections{Page: page, Sections: secs})
	}
	return out
}
