// Package services defines the business logic for ingesting deal messages,
// counting clicks and querying stored messages. This file centralizes
// service-level error values so that callers can check them with errors.Is.
//
// Translation into HTTP status codes is performed by the handler layer.
package services

import (
	"errors"

	"github.com/tbourn/go-deals-backend/internal/domain"
)

var (
	// ErrInvalidEvent is returned when a feed event lacks a required field.
	ErrInvalidEvent = domain.ErrInvalidEvent

	// ErrMessageNotFound indicates the message id is malformed or unknown.
	ErrMessageNotFound = errors.New("message not found")

	// ErrInvalidCursor is returned for a cursor that is not a positive integer.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrInvalidCategory is returned for a category filter outside the closed set.
	ErrInvalidCategory = errors.New("invalid category")
)
