package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"site-cms/internal/common/errors"
	"site-cms/internal/models"
	"site-cms/internal/resolver"
)

type pageQuery struct {
	Slug string `form:"slug" binding:"required"`
}

// generate handles {action, ...payload}.
func (h *Handler) generate(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}
	action, _ := body["action"].(string)
	if action == "" {
		h.fail(c, errors.NewUnknownActionError(""))
		return
	}

	res, err := h.Authoring.Generate(c.Request.Context(), models.GenerationAction(action), body)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res.Value())
}

func (h *Handler) getPage(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, errors.NewValidationError("Query parameter 'slug' is required"))
		return
	}

	agg, err := h.Resolver.Resolve(c.Request.Context(), q.Slug, resolver.Options{})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Cache-Control", PublicCacheControl)
	c.JSON(http.StatusOK, agg)
}

// renderPage returns the HTML fragment of every renderable section. Unknown
// section types are left out.
func (h *Handler) renderPage(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, errors.NewValidationError("Query parameter 'slug' is required"))
		return
	}

	agg, err := h.Resolver.Resolve(c.Request.Context(), q.Slug, resolver.Options{})
	if err != nil {
		h.fail(c, err)
		return
	}
	blocks := h.Render.RenderPage(agg.Sections)
	c.Header("Cache-Control", PublicCacheControl)
	c.JSON(http.StatusOK, gin.H{
		"page":     agg.Page,
		"sections": h.Render.HTMLPage(blocks),
	})
}
