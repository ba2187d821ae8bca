// Package domain defines the persistence models for ingested deal messages
// and their click aggregates. These types are mapped with GORM and form the
// core data layer of the deals backend.
package domain

import "time"

// Message is an accepted deal announcement from a content channel.
//
// Fields:
//   - ID: auto-increment primary key; also the pagination cursor and the id
//     used by click counters.
//   - ChannelID / MessageID: the upstream (channel, message) pair. Unique
//     together, so a redelivered event can never create a second row.
//   - Text: normalized message text.
//   - Date: origin timestamp reported by the channel.
//   - Link: the product link carried by the message, if any.
//   - ImageURL / NativeImageRef: resolved image (external URL or the file id
//     of a natively attached photo); at most one is set.
//   - Category: one of the closed Category values.
//   - Clicks: durable click count, only ever increased by the click flush.
//   - CreatedAt: ingestion time.
type Message struct {
	ID             uint64    `json:"id"             gorm:"primaryKey;autoIncrement"`
	ChannelID      int64     `json:"channelId"      gorm:"not null;uniqueIndex:ux_channel_message,priority:1"`
	MessageID      int64     `json:"messageId"      gorm:"not null;uniqueIndex:ux_channel_message,priority:2"`
	Text           string    `json:"text"           gorm:"type:text;not null"`
	Date           time.Time `json:"date"           gorm:"not null"`
	Link           string    `json:"link"           gorm:"type:text"`
	ImageURL       string    `json:"imageUrl"       gorm:"type:text"`
	NativeImageRef string    `json:"nativeImageRef" gorm:"type:varchar(255)"`
	Category       Category  `json:"category"       gorm:"type:varchar(32);not null;index:idx_messages_category"`
	Clicks         int64     `json:"clicks"         gorm:"not null;default:0"`
	CreatedAt      time.Time `json:"createdAt"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// DailyClick is the durable click total for one calendar day, keyed by the
// date string (YYYY-MM-DD) in the configured click timezone.
type DailyClick struct {
	Day       string    `json:"day"       gorm:"type:char(10);primaryKey"`
	Clicks    int64     `json:"clicks"    gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the database table name for DailyClick.
func (DailyClick) TableName() string { return "daily_clicks" }
