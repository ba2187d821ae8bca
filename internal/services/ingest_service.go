// Package services – IngestService
//
// IngestService turns one inbound feed event into at most one stored
// message. Each event moves through
//
//	Received → Validate → gates (recency, duplicate, low-context,
//	profitability) → Classify → ResolveImage → Persist → Done
//
// and any gate failure ends in Rejected(reason) with nothing written.
// Classification and image resolution never fail the event; they degrade
// to their fallbacks. A unique-key conflict on persist means the event was
// already ingested and is reported as a duplicate, not an error.
//
// Observability: Ingest is traced and every outcome is counted.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-deals-backend/internal/classify"
	"github.com/tbourn/go-deals-backend/internal/domain"
	"github.com/tbourn/go-deals-backend/internal/fingerprint"
	"github.com/tbourn/go-deals-backend/internal/imageres"
	"github.com/tbourn/go-deals-backend/internal/repo"
	"github.com/tbourn/go-deals-backend/internal/search"
)

// ContentGate is the pre-classification filter. *fingerprint.Filter implements it.
type ContentGate interface {
	Check(text string, origin time.Time) (fingerprint.Reason, bool)
}

// Classifier assigns text and category. *classify.Classifier implements it.
type Classifier interface {
	Classify(ctx context.Context, text string) classify.Result
}

// ImageResolver picks an image. *imageres.Resolver implements it.
type ImageResolver interface {
	Resolve(ctx context.Context, text string, photos []domain.FeedPhoto) (imageres.Image, error)
}

// IngestStatus is the terminal state of one event.
type IngestStatus string

const (
	StatusAccepted  IngestStatus = "accepted"
	StatusDuplicate IngestStatus = "duplicate"
	StatusRejected  IngestStatus = "rejected"
)

// ReasonInvalidEvent is the rejection reason for events failing validation.
const ReasonInvalidEvent = "invalid_event"

// IngestOutcome reports what happened to an event.
type IngestOutcome struct {
	Status  IngestStatus
	Reason  string          // set when Status is StatusRejected
	Message *domain.Message // set when Status is StatusAccepted
}

// IngestService runs the ingestion pipeline. Instances are safe for
// concurrent use as long as the collaborators are.
type IngestService struct {
	DB         *gorm.DB
	Gate       ContentGate
	Classifier Classifier
	Images     ImageResolver
	Log        zerolog.Logger
}

// Ingest processes ev. The returned error is ErrInvalidEvent for a
// malformed event or a persistence failure; every other path returns nil.
func (s *IngestService) Ingest(ctx context.Context, ev domain.FeedEvent) (IngestOutcome, error) {
	tr := otel.Tracer("services/IngestService")
	ctx, span := tr.Start(ctx, "Ingest",
		trace.WithAttributes(
			attribute.Int64("channel.id", ev.Chat.ID),
			attribute.Int64("message.id", ev.MessageID),
		),
	)
	defer span.End()

	log := s.Log.With().Int64("channel_id", ev.Chat.ID).Int64("message_id", ev.MessageID).Logger()

	if err := ev.Validate(); err != nil {
		return s.reject(log, ReasonInvalidEvent), err
	}

	text := search.Sanitize(ev.Body())
	if reason, ok := s.Gate.Check(text, ev.OriginTime()); !ok {
		return s.reject(log, string(reason)), nil
	}

	res := s.Classifier.Classify(ctx, text)
	classificationTotal.WithLabelValues(string(res.Source)).Inc()

	img, err := s.Images.Resolve(ctx, text, ev.Photo)
	if errors.Is(err, imageres.ErrDuplicateImage) {
		return s.reject(log, string(fingerprint.ReasonDuplicateImage)), nil
	}
	imageResolutionTotal.WithLabelValues(string(img.Source)).Inc()

	msg := &domain.Message{
		ChannelID:      ev.Chat.ID,
		MessageID:      ev.MessageID,
		Text:           res.Text,
		Date:           ev.OriginTime(),
		Link:           search.PrimaryLink(text),
		ImageURL:       img.URL,
		NativeImageRef: img.NativeRef,
		Category:       res.Category,
	}
	if err := repo.CreateMessage(ctx, s.DB, msg); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			ingestTotal.WithLabelValues(string(StatusDuplicate)).Inc()
			log.Debug().Msg("message already ingested")
			return IngestOutcome{Status: StatusDuplicate}, nil
		}
		span.RecordError(err)
		ingestTotal.WithLabelValues("error").Inc()
		return IngestOutcome{}, fmt.Errorf("persist message: %w", err)
	}

	span.SetAttributes(attribute.String("category", string(msg.Category)))
	ingestTotal.WithLabelValues(string(StatusAccepted)).Inc()
	log.Info().
		Uint64("id", msg.ID).
		Str("category", string(msg.Category)).
		Str("classified_by", string(res.Source)).
		Str("image", string(img.Source)).
		Msg("message accepted")
	return IngestOutcome{Status: StatusAccepted, Message: msg}, nil
}

func (s *IngestService) reject(log zerolog.Logger, reason string) IngestOutcome {
	ingestTotal.WithLabelValues(reason).Inc()
	log.Debug().Str("reason", reason).Msg("message rejected")
	return IngestOutcome{Status: StatusRejected, Reason: reason}
}
