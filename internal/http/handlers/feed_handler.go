package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-deals-backend/internal/http/middleware"
	"github.com/tbourn/go-deals-backend/internal/services"
)

// StatusQueued is the webhook ack status for an event accepted for
// background ingestion.
const StatusQueued = "queued"

// FeedAck is the webhook acknowledgement. It is returned for every delivery.
type FeedAck struct {
	OK     bool   `json:"ok" example:"true"`
	Status string `json:"status,omitempty" example:"queued"`
	Reason string `json:"reason,omitempty" example:"invalid_event"`
}

// FeedEvent godoc
// @ID          feedEvent
// @Summary     Receive a channel feed event
// @Description Queues one event for ingestion and acknowledges at once. The response is always 200 so the sender never redelivers.
// @Tags        Feed
// @Accept      json
// @Produce     json
//
// @Param       body  body  domain.FeedEvent  true  "Feed event"
//
// @Success     200  {object}  handlers.FeedAck
// @Router      /feed/events [post]
func (h *Handlers) FeedEvent(c *gin.Context) {
	lg := middleware.LoggerFrom(c)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		lg.Warn().Err(err).Msg("feed webhook body unreadable")
		ok(c, http.StatusOK, FeedAck{OK: true})
		return
	}
	// Ingestion outlives the request; the ack never waits on it.
	if _, err := h.feed.Submit(body, lg.With().Str("source", "webhook").Logger()); err != nil {
		ok(c, http.StatusOK, FeedAck{OK: true, Status: string(services.StatusRejected), Reason: services.ReasonInvalidEvent})
		return
	}
	ok(c, http.StatusOK, FeedAck{OK: true, Status: StatusQueued})
}
