package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/dto"
	"github.com/nextolk/backend/internal/search"
	"github.com/nextolk/backend/internal/util"
)

// Search looks up videos or products
// GET /api/search/?q=&type=videos|products
func (h *Handlers) Search(c *gin.Context) {
	kind, ok := search.ParseKind(c.Query("type"))
	if !ok {
		util.RespondValidationError(c, "type", "type must be videos or products.")
		return
	}
	limit, offset := util.Pagination(c)

	res, err := h.search.Search(c.Request.Context(), kind, c.Query("q"), limit, offset)
	if err != nil {
		util.RespondError(c, err, "Search failed")
		return
	}

	body := gin.H{
		"type":    res.Kind,
		"backend": res.Backend,
		"total":   res.Total,
	}
	if kind == search.KindProducts {
		body["results"] = dto.ToProductResponses(res.Products, h.store)
	} else {
		body["results"] = dto.ToVideoResponses(res.Videos, h.store)
	}
	c.JSON(http.StatusOK, body)
}
