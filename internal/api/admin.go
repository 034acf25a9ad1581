package api

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"site-cms/internal/common/errors"
	"site-cms/internal/models"
	"site-cms/internal/resolver"
	"site-cms/internal/sections"
	"site-cms/internal/store"
)

type listPagesQuery struct {
	Status   string `form:"status"`
	PageType string `form:"page_type"`
}

type addSectionRequest struct {
	SectionType  models.SectionType `json:"section_type" binding:"required"`
	Content      models.Content     `json:"content"`
	DisplayOrder *int               `json:"display_order"`
}

type updateSectionRequest struct {
	Content models.Content `json:"content"`
}

type moveSectionRequest struct {
	Direction string `json:"direction" binding:"required,oneof=up down"`
}

type reorderRequest struct {
	SectionIDs []string `json:"section_ids" binding:"required"`
}

type previewRequest struct {
	SectionID string         `json:"section_id"`
	Content   models.Content `json:"content"`
}

type generatePageRequest struct {
	models.PageContentInput
	Page models.PageMeta `json:"page"`
}

type regenPreviewRequest struct {
	Tone              string `json:"tone"`
	ExtraInstructions string `json:"extra_instructions"`
}

type regenApplyRequest struct {
	Sections []models.SectionInput `json:"sections"`
}

type schemaResponse struct {
	Type        models.SectionType   `json:"type"`
	Label       string               `json:"label"`
	Description string               `json:"description"`
	Fields      []sections.FormField `json:"fields"`
	Default     models.Content       `json:"default"`
}

func (h *Handler) listSchemas(c *gin.Context) {
	all := sections.All()
	out := make([]schemaResponse, 0, len(all))
	for _, s := range all {
		def, _ := sections.DefaultContent(s.Type)
		out = append(out, schemaResponse{
			Type:        s.Type,
			Label:       s.Label,
			Description: s.Description,
			Fields:      sections.FormFields(s),
			Default:     def,
		})
	}
	c.JSON(http.StatusOK, gin.H{"schemas": out})
}

func (h *Handler) searchPages(c *gin.Context) {
	if h.Search == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not enabled"})
		return
	}
	q := c.Query("q")
	if q == "" {
		h.fail(c, errors.NewValidationError("Query parameter 'q' is required"))
		return
	}
	res, err := h.Search.Search(c.Request.Context(), q, models.PageStatus(c.Query("status")), 20)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query":   q,
		"total":   res.Total,
		"results": res.Hits,
	})
}

func (h *Handler) listPages(c *gin.Context) {
	var q listPagesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, err)
		return
	}
	pages, err := h.Store.ListPages(c.Request.Context(), models.PageFilter{
		Status:   models.PageStatus(q.Status),
		PageType: models.PageType(q.PageType),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pages": pages, "count": len(pages)})
}

func (h *Handler) createPage(c *gin.Context) {
	var meta models.PageMeta
	if err := c.ShouldBindJSON(&meta); err != nil {
		h.badRequest(c, err)
		return
	}
	page, err := h.Store.CreatePage(c.Request.Context(), meta)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, page)
}

// generatePage creates a draft page with generated sections in one write.
func (h *Handler) generatePage(c *gin.Context) {
	var req generatePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if req.BusinessName == "" || req.BusinessDescription == "" {
		h.fail(c, errors.NewValidationError("business_name and business_description are required"))
		return
	}
	agg, err := h.Authoring.CreatePage(c.Request.Context(), h.Store, req.PageContentInput, req.Page)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, agg)
}

func (h *Handler) getAdminPage(c *gin.Context) {
	ctx := c.Request.Context()
	page, err := h.Store.GetPage(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	agg, err := store.LoadAggregate(ctx, h.Store, page)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, agg)
}

func (h *Handler) updatePage(c *gin.Context) {
	var meta models.PageMeta
	if err := c.ShouldBindJSON(&meta); err != nil {
		h.badRequest(c, err)
		return
	}
	page, err := h.Store.UpdatePage(c.Request.Context(), c.Param("id"), meta)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) deletePage(c *gin.Context) {
	if err := h.Store.DeletePage(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// addSection inserts a section of a registered type. Without content the
// type's starter content is used; without display_order it is appended.
func (h *Handler) addSection(c *gin.Context) {
	var req addSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	def, err := sections.DefaultContent(req.SectionType)
	if err != nil {
		h.fail(c, err)
		return
	}
	content := req.Content
	if content == nil {
		content = def
	}
	order := math.MaxInt32
	if req.DisplayOrder != nil {
		order = *req.DisplayOrder
	}

	sec, err := h.Store.AddSection(c.Request.Context(), c.Param("id"), req.SectionType, content, order)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sec)
}

func (h *Handler) updateSection(c *gin.Context) {
	var req updateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	sec, err := h.Store.UpdateSection(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sec)
}

func (h *Handler) deleteSection(c *gin.Context) {
	if err := h.Store.DeleteSection(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) moveSection(c *gin.Context) {
	var req moveSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	delta := 1
	if req.Direction == "up" {
		delta = -1
	}
	if err := h.Store.MoveSection(c.Request.Context(), c.Param("id"), delta); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) reorderSections(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := h.Store.ReorderSections(ctx, c.Param("id"), req.SectionIDs); err != nil {
		h.fail(c, err)
		return
	}
	secs, err := h.Store.ListSections(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sections": secs})
}

// previewPage renders a page, draft or not, with one section swapped for the
// editor's unsaved content.
func (h *Handler) previewPage(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	page, err := h.Store.GetPage(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	agg, err := h.Resolver.Resolve(ctx, page.Slug, resolver.Options{
		Preview:           true,
		OverrideSectionID: req.SectionID,
		OverrideContent:   req.Content,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"page":     agg.Page,
		"sections": h.Render.HTMLPage(h.Render.RenderPage(agg.Sections)),
	})
}

func (h *Handler) regenPreview(c *gin.Context) {
	var req regenPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	sess := h.Regen.NewSession(c.Param("id"))
	preview, err := sess.Request(c.Request.Context(), models.PageRegenInput{
		Tone:              req.Tone,
		ExtraInstructions: req.ExtraInstructions,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":    sess.State(),
		"sections": preview,
		"rendered": h.Render.HTMLPage(h.Render.RenderPage(previewSections(preview))),
	})
}

// regenApply persists a preview the client held onto from regenPreview.
func (h *Handler) regenApply(c *gin.Context) {
	var req regenApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	sess := h.Regen.Resume(c.Param("id"), req.Sections)
	saved, err := sess.Apply(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": sess.State(), "sections": saved})
}

func previewSections(in []models.SectionInput) []*models.Section {
	out := make([]*models.Section, len(in))
	for i, s := range in {
		out[i] = &models.Section{SectionType: s.SectionType, Content: s.Content, DisplayOrder: i}
	}
	return out
}
