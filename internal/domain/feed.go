package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidEvent is returned by FeedEvent.Validate when a required field is
// missing or malformed.
var ErrInvalidEvent = errors.New("invalid feed event")

// FeedEvent is one inbound channel post as delivered by the feed, either over
// the broker or the webhook.
type FeedEvent struct {
	MessageID int64       `json:"message_id"`
	Chat      FeedChat    `json:"chat"`
	Date      int64       `json:"date"` // unix seconds
	Text      string      `json:"text,omitempty"`
	Caption   string      `json:"caption,omitempty"`
	Photo     []FeedPhoto `json:"photo,omitempty"`
}

// FeedChat identifies the originating channel.
type FeedChat struct {
	ID int64 `json:"id"`
}

// FeedPhoto is one size variant of a natively attached image.
type FeedPhoto struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size"`
}

// Body returns the post text, falling back to the photo caption.
func (e FeedEvent) Body() string {
	if strings.TrimSpace(e.Text) != "" {
		return e.Text
	}
	return e.Caption
}

// OriginTime converts Date to a UTC time.
func (e FeedEvent) OriginTime() time.Time {
	return time.Unix(e.Date, 0).UTC()
}

// LargestPhoto returns the file id of the attached photo with the greatest
// reported size. Ties keep the earlier entry.
func (e FeedEvent) LargestPhoto() (string, bool) {
	best := -1
	for i, p := range e.Photo {
		if p.FileID == "" {
			continue
		}
		if best < 0 || p.FileSize > e.Photo[best].FileSize {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	return e.Photo[best].FileID, true
}

// Validate checks required fields.
func (e FeedEvent) Validate() error {
	switch {
	case e.MessageID <= 0:
		return errors.Join(ErrInvalidEvent, errors.New("message_id must be > 0"))
	case e.Chat.ID == 0:
		return errors.Join(ErrInvalidEvent, errors.New("chat.id is required"))
	case e.Date <= 0:
		return errors.Join(ErrInvalidEvent, errors.New("date must be > 0"))
	case strings.TrimSpace(e.Body()) == "":
		return errors.Join(ErrInvalidEvent, errors.New("text or caption is required"))
	}
	return nil
}
