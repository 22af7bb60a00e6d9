package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// AuditEntry records one admin mutation forwarded to the upstream backend
type AuditEntry struct {
	BaseModel
	Actor          string `json:"actor" gorm:"not null;index"` // user ID once the upstream accepted the token, else "anonymous"
	ClaimedActor   string `json:"claimed_actor"`               // user ID the token claims, read without signature verification
	Method         string `json:"method" gorm:"not null"`
	Path           string `json:"path" gorm:"not null"` // upstream path, e.g. /packages/42/toggle-publish
	UpstreamStatus int    `json:"upstream_status" gorm:"not null;default:0"`
	Message        string `json:"message"`
	RequestID      string `json:"request_id" gorm:"index"`
}

// Succeeded reports whether the upstream accepted the mutation
func (a *AuditEntry) Succeeded() bool {
	return a.UpstreamStatus >= 200 && a.UpstreamStatus < 300
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&AuditEntry{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
