package authoring

import (
	"context"

	"site-cms/internal/common/errors"
	"site-cms/internal/common/validation"
	"site-cms/internal/models"
)

// ActionFunc runs one generation action from a validated payload.
type ActionFunc func(ctx context.Context, s *Service, payload map[string]interface{}) (*Result, error)

type action struct {
	schema validation.JSONSchema
	run    ActionFunc
}

var str = validation.Property{Type: "string"}

var registry = map[models.GenerationAction]action{
	models.ActionPageContent: {
		schema: validation.JSONSchema{
			Type: "object",
			Properties: map[string]validation.Property{
				"business_name":        str,
				"business_description": str,
				"tone":                 str,
			},
			Required:             []string{"business_name", "business_description"},
			AdditionalProperties: true,
		},
		run: runPageContent,
	},
	models.ActionSectionContent: {
		schema: validation.JSONSchema{
			Type: "object",
			Properties: map[string]validation.Property{
				"section_id":           str,
				"section_type":         str,
				"business_description": str,
				"context":              str,
				"tone":                 str,
			},
			AdditionalProperties: true,
		},
		run: runSectionContent,
	},
	models.ActionPageRegen: {
		schema: validation.JSONSchema{
			Type: "object",
			Properties: map[string]validation.Property{
				"page_id":            str,
				"page_title":         str,
				"page_slug":          str,
				"page_type":          str,
				"tone":               str,
				"extra_instructions": str,
				"current_sections":   {Type: "array", Items: &str},
				"sibling_pages":      {Type: "array"},
			},
			AdditionalProperties: true,
		},
		run: runPageRegen,
	},
	models.ActionSEO: {
		schema: validation.JSONSchema{
			Type: "object",
			Properties: map[string]validation.Property{
				"title":   str,
				"excerpt": str,
				"content": str,
			},
			Required:             []string{"title"},
			AdditionalProperties: true,
		},
		run: runSEO,
	},
}

// Actions lists the supported action names.
func Actions() []models.GenerationAction {
	return []models.GenerationAction{
		models.ActionPageContent,
		models.ActionSectionContent,
		models.ActionPageRegen,
		models.ActionSEO,
	}
}

// Generate dispatches a raw request body of the form {action, ...payload}.
// The action key itself is ignored if still present in payload.
func (s *Service) Generate(ctx context.Context, name models.GenerationAction, payload map[string]interface{}) (*Result, error) {
	a, ok := registry[name]
	if !ok {
		return nil, errors.NewUnknownActionError(string(name))
	}

	clean := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		if k != "action" {
			clean[k] = v
		}
	}
	if err := checkPayload(clean, a.schema); err != nil {
		return nil, err
	}

	s.log.Debug("generation requested", map[string]interface{}{"action": string(name)})
	res, err := a.run(ctx, s, clean)
	if err != nil {
		return nil, err
	}
	res.Action = name
	return res, nil
}

func runPageContent(ctx context.Context, s *Service, payload map[string]interface{}) (*Result, error) {
	var in models.PageContentInput
	if err := decode(payload, &in); err != nil {
		return nil, err
	}
	page, err := s.GeneratePage(ctx, in)
	if err != nil {
		return nil, err
	}
	return &Result{Page: page}, nil
}

func runSectionContent(ctx context.Context, s *Service, payload map[string]interface{}) (*Result, error) {
	var in models.SectionContentInput
	if err := decode(payload, &in); err != nil {
		return nil, err
	}
	if in.SectionType == "" && in.SectionID == "" {
		return nil, errors.NewValidationError("section_content requires section_type or section_id")
	}
	content, err := s.GenerateSection(ctx, in)
	if err != nil {
		return nil, err
	}
	return &Result{Content: content}, nil
}

func runPageRegen(ctx context.Context, s *Service, payload map[string]interface{}) (*Result, error) {
	var in models.PageRegenInput
	if err := decode(payload, &in); err != nil {
		return nil, err
	}
	page, err := s.RegeneratePage(ctx, in)
	if err != nil {
		return nil, err
	}
	return &Result{Page: page}, nil
}

func runSEO(ctx context.Context, s *Service, payload map[string]interface{}) (*Result, error) {
	var in models.SEOInput
	if err := decode(payload, &in); err != nil {
		return nil, err
	}
	seo, err := s.GenerateSEO(ctx, in)
	if err != nil {
		return nil, err
	}
	return &Result{SEO: seo}, nil
}
