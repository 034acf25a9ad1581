// internal/models/page.go
package models

import (
	"regexp"
	"strings"
	"time"
)

type PageStatus string

const (
	PageStatusDraft     PageStatus = "draft"
	PageStatusPublished PageStatus = "published"
)

type PageType string

const (
	PageTypeCore    PageType = "core"
	PageTypeService PageType = "service"
	PageTypeOther   PageType = "other"
)

// ProtectedSlugs are the core pages referenced by primary navigation.
var ProtectedSlugs = []string{"home", "about", "contact", "services"}

func IsProtectedSlug(slug string) bool {
	for _, s := range ProtectedSlugs {
		if s == slug {
			return true
		}
	}
	return false
}

// IsProtected reports whether p is a core page: a core page type or one of
// the navigation slugs. Protected pages cannot be deleted or moved off
// their slug.
func IsProtected(p *Page) bool {
	return p != nil && (p.PageType == PageTypeCore || IsProtectedSlug(p.Slug))
}

type Page struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Slug            string     `json:"slug"`
	Status          PageStatus `json:"status"`
	MetaTitle       string     `json:"meta_title"`
	MetaDescription string     `json:"meta_description"`
	OGImageURL      string     `json:"og_image_url"`
	PageType        PageType   `json:"page_type"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// PageMeta is the writable part of a page, used for create and update.
type PageMeta struct {
	Title           string     `json:"title" yaml:"title"`
	Slug            string     `json:"slug" yaml:"slug"`
	Status          PageStatus `json:"status" yaml:"status"`
	MetaTitle       string     `json:"meta_title" yaml:"meta_title"`
	MetaDescription string     `json:"meta_description" yaml:"meta_description"`
	OGImageURL      string     `json:"og_image_url" yaml:"og_image_url"`
	PageType        PageType   `json:"page_type" yaml:"page_type"`
}

// Normalize fills defaults: draft status, other page type, meta title from title.
func (m PageMeta) Normalize() PageMeta {
	m.Title = strings.TrimSpace(m.Title)
	m.Slug = strings.TrimSpace(m.Slug)
	if m.Status == "" {
		m.Status = PageStatusDraft
	}
	if m.PageType == "" {
		m.PageType = PageTypeOther
	}
	if m.MetaTitle == "" {
		m.MetaTitle = m.Title
	}
	return m
}

func (s PageStatus) Valid() bool {
	return s == PageStatusDraft || s == PageStatusPublished
}

func (t PageType) Valid() bool {
	return t == PageTypeCore || t == PageTypeService || t == PageTypeOther
}

// PageFilter narrows ListPages. Zero values match everything.
type PageFilter struct {
	Status       PageStatus
	PageType     PageType
	ExcludeSlugs []string
}

// Matches applies the filter to a page in memory.
func (f PageFilter) Matches(p *Page) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.PageType != "" && p.PageType != f.PageType {
		return false
	}
	for _, s := range f.ExcludeSlugs {
		if p.Slug == s {
			return false
		}
	}
	return true
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases title and collapses every run of other characters into
// a single dash.
func Slugify(title string) string {
	s := nonSlugChars.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}
