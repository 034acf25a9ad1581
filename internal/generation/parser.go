// Package generation turns raw model output into structured content. The
// default policy is lenient: after fence stripping anything that parses as
// JSON of the right top-level kind is accepted, and the renderer absorbs
// missing or extra keys.
package generation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"site-cms/internal/common/errors"
	"site-cms/internal/common/metrics"
	"site-cms/internal/common/validation"
	"site-cms/internal/models"
	"site-cms/internal/sections"
)

// Shape is the expected top-level kind of a model reply.
type Shape string

const (
	ShapeAny          Shape = "any"
	ShapeObject       Shape = "object"
	ShapePageSections Shape = "page_sections"
)

var (
	leadingFence  = regexp.MustCompile("^```[A-Za-z]*[ \t]*\r?\n?")
	trailingFence = regexp.MustCompile("\r?\n?```\\s*$")
	embeddedFence = regexp.MustCompile("(?s)```[A-Za-z]*[ \t]*\r?\n(.*?)\r?\n?```")
)

// StripFences trims whitespace and removes a wrapping code fence. When prose
// precedes the fence, the first fenced block is returned.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = leadingFence.ReplaceAllString(text, "")
		text = trailingFence.ReplaceAllString(text, "")
		return strings.TrimSpace(text)
	}
	if m := embeddedFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

type Parser struct {
	// Strict additionally checks required keys and per-section schemas.
	Strict bool
}

func NewParser(strict bool) *Parser {
	return &Parser{Strict: strict}
}

// Parse decodes raw into a generic JSON value and checks its top-level kind.
// Every failure is a MalformedGenerationError carrying raw.
func (p *Parser) Parse(raw string, shape Shape) (interface{}, error) {
	text := StripFences(raw)

	var v interface{}
	err := json.Unmarshal([]byte(text), &v)
	if err != nil {
		// bare JSON surrounded by prose
		if inner, ok := outerObject(text); ok && json.Unmarshal([]byte(inner), &v) == nil {
			err = nil
		}
	}
	if err != nil {
		return nil, malformed(raw, shape, err)
	}

	switch shape {
	case ShapeObject:
		if _, ok := v.(map[string]interface{}); !ok {
			return nil, malformed(raw, shape, fmt.Errorf("expected a JSON object, got %s", kindOf(v)))
		}
	case ShapePageSections:
		obj, ok := v.(map[string]interface{})
		if !ok {
			return nil, malformed(raw, shape, fmt.Errorf("expected a JSON object, got %s", kindOf(v)))
		}
		if _, ok := obj["sections"].([]interface{}); !ok {
			return nil, malformed(raw, shape, fmt.Errorf(`expected a "sections" array`))
		}
	}
	return v, nil
}

// ParseSection parses section_content output. In strict mode the object is
// validated against the schema of sectionType.
func (p *Parser) ParseSection(raw string, sectionType models.SectionType) (models.Content, error) {
	v, err := p.Parse(raw, ShapeObject)
	if err != nil {
		return nil, err
	}
	content := models.Content(v.(map[string]interface{}))
	if p.Strict {
		if err := validateSection(sectionType, content); err != nil {
			return nil, malformed(raw, ShapeObject, err)
		}
	}
	return content, nil
}

// ParsePage parses page_content and page_regen output.
func (p *Parser) ParsePage(raw string) (*models.PageGeneration, error) {
	v, err := p.Parse(raw, ShapePageSections)
	if err != nil {
		return nil, err
	}

	var out models.PageGeneration
	if err := remarshal(v, &out); err != nil {
		return nil, malformed(raw, ShapePageSections, err)
	}
	if out.Sections == nil {
		out.Sections = []models.SectionInput{}
	}

	if p.Strict {
		for i, s := range out.Sections {
			if err := validateSection(s.SectionType, s.Content); err != nil {
				return nil, malformed(raw, ShapePageSections, fmt.Errorf("sections[%d]: %w", i, err))
			}
		}
	}
	return &out, nil
}

var seoSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"meta_title":       {Type: "string"},
		"meta_description": {Type: "string"},
		"tags":             {Type: "array", Items: &validation.Property{Type: "string"}},
	},
	Required:             []string{"meta_title", "meta_description"},
	AdditionalProperties: true,
}

// ParseSEO parses seo output.
func (p *Parser) ParseSEO(raw string) (*models.SEOResult, error) {
	v, err := p.Parse(raw, ShapeObject)
	if err != nil {
		return nil, err
	}
	if p.Strict {
		if err := validate(seoSchema, v); err != nil {
			return nil, malformed(raw, ShapeObject, err)
		}
	}
	var out models.SEOResult
	if err := remarshal(v, &out); err != nil {
		return nil, malformed(raw, ShapeObject, err)
	}
	return &out, nil
}

func validateSection(t models.SectionType, content models.Content) error {
	schema, err := sections.Lookup(t)
	if err != nil {
		return fmt.Errorf("unknown section type %q", t)
	}
	return validate(sections.JSONSchema(schema), map[string]interface{}(content))
}

func validate(schema validation.JSONSchema, doc interface{}) error {
	if doc == nil {
		doc = map[string]interface{}{}
	}
	errs, err := validation.ValidateDocument(schema, doc)
	if err != nil {
		return err
	}
	if len(errs) > 0 {
		return fmt.Errorf("schema violations: %s", strings.Join(errs, "; "))
	}
	return nil
}

func remarshal(v interface{}, out interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func outerObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func kindOf(v interface{}) string {
	switch v.(type) {
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return "null"
	}
}

func malformed(raw string, shape Shape, cause error) error {
	metrics.ParseFailures.WithLabelValues(string(shape)).Inc()
	return errors.NewMalformedGenerationError(raw, cause)
}
