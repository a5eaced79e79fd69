// Package service holds the use cases behind the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"dailypages/internal/delivery"
	"dailypages/internal/model"
)

var (
	ErrIDRequired           = errors.New("id is required")
	ErrNotFound             = errors.New("document not found")
	ErrReaderNil            = errors.New("reader is nil")
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrFileTooLarge         = errors.New("file too large")
	ErrInvalidPageLength    = errors.New("page length must be positive")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrReaderNotFound       = errors.New("reader not found")
	ErrInvalidScope         = errors.New("a document can only be given for a single reader")
	ErrInvalidID            = errors.New("id must be a UUID")
)

// DeliveryRunner executes one delivery pass. *delivery.Engine satisfies it.
type DeliveryRunner interface {
	Run(ctx context.Context, scope model.Scope, trigger delivery.Trigger) (*delivery.Report, error)
}

// normalizeEmail accepts a bare address such as "a@example.com" and rejects display-name forms.
func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", ErrInvalidEmail
	}
	return raw, nil
}
