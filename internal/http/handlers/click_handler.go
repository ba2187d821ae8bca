package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-deals-backend/internal/domain"
	"github.com/tbourn/go-deals-backend/internal/services"
	"github.com/tbourn/go-deals-backend/internal/utils"
)

const (
	defaultStatsDays = 7
	maxStatsDays     = 90
)

// RecordClickResponse reports the pending (not yet flushed) click count.
type RecordClickResponse struct {
	MessageID uint64 `json:"message_id" example:"42"`
	Clicks    int64  `json:"clicks" example:"3"`
}

// DailyClicksResponse lists durable daily aggregates, newest first.
type DailyClicksResponse struct {
	Days []domain.DailyClick `json:"days"`
}

// RecordClick godoc
// @ID          recordClick
// @Summary     Record a click on a deal
// @Description Atomically increments the message and daily counters. Counts are flushed to the database periodically.
// @Tags        Clicks
// @Produce     json
//
// @Param       id  path  int  true  "Message id"  minimum(1)
//
// @Success     200  {object}  handlers.RecordClickResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Malformed message id"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /messages/{id}/clicks [post]
func (h *Handlers) RecordClick(c *gin.Context) {
	raw := c.Param("id")
	n, err := h.clicks.RecordClick(c.Request.Context(), raw)
	switch {
	case errors.Is(err, services.ErrMessageNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		return
	case err != nil:
		failErr(c, http.StatusInternalServerError, ErrCodeClickFailed, err)
		return
	}
	id, _ := services.ParseMessageID(raw)
	ok(c, http.StatusOK, RecordClickResponse{MessageID: id, Clicks: n})
}

// FollowLink godoc
// @ID          followLink
// @Summary     Redirect to a deal
// @Description Records a click and redirects to the deal's stored link.
// @Tags        Clicks
//
// @Param       id  path  int  true  "Message id"  minimum(1)
//
// @Success     302  "Redirect to the deal link"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown message or no link"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /r/{id} [get]
func (h *Handlers) FollowLink(c *gin.Context) {
	m, err := h.clicks.Follow(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, services.ErrMessageNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		return
	case err != nil:
		failErr(c, http.StatusInternalServerError, ErrCodeClickFailed, err)
		return
	}
	if m.Link == "" {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "message has no link")
		return
	}
	c.Redirect(http.StatusFound, m.Link)
}

// DailyClicks godoc
// @ID          dailyClicks
// @Summary     Daily click totals
// @Description Returns flushed daily click aggregates for the last N days, today included.
// @Tags        Clicks
// @Produce     json
//
// @Param       days  query  int  false "Number of days"  minimum(1) maximum(90) default(7)
//
// @Success     200  {object}  handlers.DailyClicksResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /stats/clicks [get]
func (h *Handlers) DailyClicks(c *gin.Context) {
	days := utils.Clamp(utils.AtoiDefault(c.Query("days"), defaultStatsDays), 1, maxStatsDays)
	rows, err := h.clicks.DailyStats(c.Request.Context(), days)
	if err != nil {
		failErr(c, http.StatusInternalServerError, ErrCodeStatsFailed, err)
		return
	}
	if rows == nil {
		rows = []domain.DailyClick{}
	}
	ok(c, http.StatusOK, DailyClicksResponse{Days: rows})
}
