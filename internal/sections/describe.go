package sections

import (
	"fmt"
	"strings"

	"site-cms/internal/common/validation"
)

// Describe renders the compact shape string embedded in prompts, e.g.
// { tag, title, body, steps:[{number,title,description}] }.
func Describe(s *Schema) string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = describeField(f)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func describeField(f Field) string {
	switch f.Kind {
	case KindLink:
		return f.Name + ":" + describeInline(f.Item)
	case KindStringList:
		return f.Name + ":[]"
	case KindList:
		return f.Name + ":[" + describeInline(f.Item) + "]"
	default:
		return f.Name
	}
}

func describeInline(fields []Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = describeField(f)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// DescribeAll lists every registered type, one per line, in canonical order.
func DescribeAll() string {
	var b strings.Builder
	for i, s := range registry {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %q: %s", string(s.Type), Describe(s))
	}
	return b.String()
}

// FormField describes one admin input. Lists carry their item fields;
// string lists are edited one entry per line.
type FormField struct {
	Path        string      `json:"path"`
	Label       string      `json:"label"`
	Input       string      `json:"input"`
	Required    bool        `json:"required,omitempty"`
	Placeholder string      `json:"placeholder,omitempty"`
	Rows        int         `json:"rows,omitempty"`
	AddLabel    string      `json:"add_label,omitempty"`
	ItemFields  []FormField `json:"item_fields,omitempty"`
}

// FormFields derives the admin form for s. Link fields expand into a text
// input and a link input.
func FormFields(s *Schema) []FormField {
	return formFields("", s.Fields)
}

func formFields(prefix string, fields []Field) []FormField {
	var out []FormField
	for _, f := range fields {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		label := f.Label
		if f.Required {
			label += " *"
		}

		switch f.Kind {
		case KindLink:
			for _, sub := range f.Item {
				out = append(out, FormField{
					Path:  path + "." + sub.Name,
					Label: f.Label + " " + sub.Label,
					Input: "text",
				})
			}
		case KindList:
			out = append(out, FormField{
				Path:       path,
				Label:      label,
				Input:      "list",
				AddLabel:   f.AddLabel,
				ItemFields: formFields("", f.Item),
			})
		case KindStringList:
			out = append(out, FormField{Path: path, Label: label, Input: "lines"})
		case KindTextarea, KindMarkdown:
			rows := f.Rows
			if rows == 0 {
				rows = 3
			}
			out = append(out, FormField{Path: path, Label: label, Input: string(f.Kind), Rows: rows, Placeholder: f.Placeholder})
		default:
			out = append(out, FormField{Path: path, Label: label, Input: "text", Required: f.Required, Placeholder: f.Placeholder})
		}
	}
	return out
}

// JSONSchema returns the validation schema used by strict parsing. Extra
// keys are always allowed.
func JSONSchema(s *Schema) validation.JSONSchema {
	props, required := properties(s.Fields)
	return validation.JSONSchema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: true,
	}
}

func properties(fields []Field) (map[string]validation.Property, []string) {
	props := make(map[string]validation.Property, len(fields))
	var required []string
	for _, f := range fields {
		props[f.Name] = property(f)
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return props, required
}

func property(f Field) validation.Property {
	switch f.Kind {
	case KindScalar:
		// any type; stat figures arrive as strings or numbers
		return validation.Property{}
	case KindLink:
		props, _ := properties(f.Item)
		return validation.Property{Type: "object", Properties: props}
	case KindStringList:
		return validation.Property{Type: "array", Items: &validation.Property{Type: "string"}}
	case KindList:
		props, required := properties(f.Item)
		return validation.Property{Type: "array", Items: &validation.Property{Type: "object", Properties: props, Required: required}}
	default:
		return validation.Property{Type: "string"}
	}
}
