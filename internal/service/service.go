// Package service holds the order workflow and account rules that sit
// between the HTTP handlers and the store.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/vorokhovskii-creator/felix-hub/internal/catalog"
	"github.com/vorokhovskii-creator/felix-hub/internal/i18n"
	"github.com/vorokhovskii-creator/felix-hub/internal/live"
	"github.com/vorokhovskii-creator/felix-hub/internal/metrics"
	"github.com/vorokhovskii-creator/felix-hub/internal/notify"
	"github.com/vorokhovskii-creator/felix-hub/internal/store"
)

var (
	ErrAnonymousDisabled  = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInactive           = errors.New("account is deactivated")
)

// ValidationError is a client mistake caught before storage is touched.
// Key names the i18n label for the message, when there is one.
type ValidationError struct {
	Key string
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Message returns the error text in lang.
func (e *ValidationError) Message(lang string) string {
	if e.Key == "" {
		return e.Msg
	}
	return i18n.T(lang, e.Key)
}

func invalid(key, format string, args ...any) error {
	return &ValidationError{Key: key, Msg: fmt.Sprintf(format, args...)}
}

type Options struct {
	AllowAnonymous bool
	// AdminLanguage is used for admin notifications and receipts.
	AdminLanguage string
	// Receipts receives printed receipts. Nil sends them to the log.
	Receipts io.Writer
}

type Service struct {
	store    *store.Store
	notifier *notify.Notifier
	hub      *live.Hub
	metrics  *metrics.Metrics
	opts     Options
}

func New(st *store.Store, n *notify.Notifier, hub *live.Hub, m *metrics.Metrics, opts Options) *Service {
	opts.AdminLanguage = i18n.Pick(i18n.Default, opts.AdminLanguage)
	return &Service{store: st, notifier: n, hub: hub, metrics: m, opts: opts}
}

func (s *Service) AllowAnonymous() bool { return s.opts.AllowAnonymous }

// Catalog snapshots the parts and categories tables for order rendering.
func (s *Service) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	parts, err := s.store.ListParts(ctx, store.PartFilter{})
	if err != nil {
		return nil, fmt.Errorf("load parts: %w", err)
	}
	categories, err := s.store.ListCategories(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return catalog.New(parts, categories), nil
}
