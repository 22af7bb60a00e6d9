package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/voyago-dev/voyago/internal/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Service records and queries the audit trail of proxied admin mutations
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewService creates a new audit service
func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "audit_service").Logger(),
	}
}

// Record stores entry. Failures are returned for the caller to log; they
// never block the proxied request.
func (s *Service) Record(ctx context.Context, entry *models.AuditEntry) error {
	if entry.Actor == "" {
		entry.Actor = "anonymous"
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// ErrNotFound is returned by Get for unknown IDs
var ErrNotFound = errors.New("audit entry not found")

// Get returns one entry by ID
func (s *Service) Get(ctx context.Context, id string) (*models.AuditEntry, error) {
	var entry models.AuditEntry
	if err := models.FindByID(s.db.WithContext(ctx), id, &entry); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get audit entry: %w", err)
	}
	return &entry, nil
}

// ListFilter narrows a List query
type ListFilter struct {
	Actor string
	Limit int
}

// List returns the most recent entries first
func (s *Service) List(ctx context.Context, filter ListFilter) ([]models.AuditEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit)
	if filter.Actor != "" {
		query = query.Where("actor = ?", filter.Actor)
	}

	var entries []models.AuditEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}

// Purge deletes entries created before cutoff and returns how many were removed
func (s *Service) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge audit entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}
