package handlers

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-deals-backend/internal/domain"
	"github.com/tbourn/go-deals-backend/internal/http/middleware"
	"github.com/tbourn/go-deals-backend/internal/services"
	"github.com/tbourn/go-deals-backend/internal/utils"
)

// ListMessagesResponse is one page of deals. NextCursor is null on the last
// page. On failure Data is empty and Error carries the error code.
type ListMessagesResponse struct {
	Data       []domain.Message `json:"data"`
	HasMore    bool             `json:"hasMore"`
	NextCursor *string          `json:"nextCursor" example:"1042"`
	TotalCount int64            `json:"totalCount"`
	Error      string           `json:"error,omitempty" example:"invalid_cursor"`
}

// listFailure writes an empty page carrying code.
func listFailure(c *gin.Context, status int, code string, err error) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().Err(err).Str("code", code).Msg("list messages failed")
	}
	c.AbortWithStatusJSON(status, ListMessagesResponse{Data: []domain.Message{}, Error: code})
}

// listETag derives a weak validator from the collection stats and the query
// string, so every distinct listing gets its own tag.
func listETag(st services.ListStats, rawQuery string) string {
	var ts int64
	if st.Newest != nil {
		ts = st.Newest.UnixNano()
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(rawQuery))
	return fmt.Sprintf(`W/"messages:%d:%d:%d:%08x"`, st.Count, ts, st.Clicks, h.Sum32())
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List deals (cursor-paginated)
// @Description Returns deals newest first. Pass nextCursor from the previous page as cursor.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Messages
// @Produce     json
//
// @Param       cursor    query  string  false "Id of the last item of the previous page"
// @Param       limit     query  int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Param       category  query  string  false "Exact category"  Enums(mobiles-computers, electronics-home, fashion-beauty, home-kitchen, grocery-health, kids-sports, miscellaneous)
// @Param       search    query  string  false "Search terms, all must match"  example(32 inch tv)
//
// @Success     200  {object} handlers.ListMessagesResponse
// @Success     304  "Not modified"
// @Failure     400  {object} handlers.ListMessagesResponse "Invalid cursor or category"
// @Failure     500  {object} handlers.ListMessagesResponse "Internal error"
// @Router      /messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	params := services.QueryParams{
		Cursor:   c.Query("cursor"),
		Limit:    utils.AtoiDefault(c.Query("limit"), services.DefaultPageSize),
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}

	// ETag pre-check (best effort).
	if st, err := h.query.Stats(ctx, params.Category); err == nil {
		etag := listETag(st, c.Request.URL.RawQuery)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	page, err := h.query.List(ctx, params)
	switch {
	case errors.Is(err, services.ErrInvalidCursor):
		listFailure(c, http.StatusBadRequest, ErrCodeInvalidCursor, err)
		return
	case errors.Is(err, services.ErrInvalidCategory):
		listFailure(c, http.StatusBadRequest, ErrCodeInvalidCategory, err)
		return
	case err != nil:
		listFailure(c, http.StatusInternalServerError, ErrCodeListFailed, err)
		return
	}

	resp := ListMessagesResponse{
		Data:       page.Data,
		HasMore:    page.HasMore,
		TotalCount: page.TotalCount,
	}
	if page.NextCursor != "" {
		next := page.NextCursor
		resp.NextCursor = &next
	}
	ok(c, http.StatusOK, resp)
}
