package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// User roles
const (
	RoleAdmin      = "ADMIN"
	RoleTechnician = "TECHNICIAN"
)

// Movement types
const (
	MovementEntry    = "ENTRY"
	MovementExit     = "EXIT"
	MovementTransfer = "TRANSFER"
)

// Alert levels
const (
	AlertLevelLow = "LOW"
	AlertLevelOut = "OUT"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// Config represents the global configuration for the single-tenant deployment
// This is a singleton model (only one row should exist)
type Config struct {
	BaseModel
	// Authentication configuration
	JWTSecret string `json:"-" gorm:"type:varchar(64);not null"` // Auto-generated on first setup (64 hex chars)

	// Alert scan configuration
	AlertSchedule string     `json:"alert_schedule"` // Cron expression, e.g. "*/15 * * * *", empty = no periodic scan
	LastScanAt    *time.Time `json:"last_scan_at"`   // When the last full scan completed
	NextScanAt    *time.Time `json:"next_scan_at"`   // Calculated from the cron schedule

	// Audit log retention
	AuditRetentionDays int `json:"audit_retention_days" gorm:"not null;default:90"`
}

// User represents a local user account (self-hosted, no external auth)
type User struct {
	BaseModel
	Email        string    `json:"email" gorm:"unique;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Name         string    `json:"name"`
	Role         string    `json:"role" gorm:"not null;default:TECHNICIAN"` // ADMIN or TECHNICIAN
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RefreshToken represents a long-lived refresh credential.
// Only the SHA-256 hash of the opaque token is stored.
type RefreshToken struct {
	BaseModel
	UserID    string     `json:"user_id" gorm:"not null;index"`
	TokenHash string     `json:"-" gorm:"uniqueIndex;not null;type:varchar(64)"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	RevokedAt *time.Time `json:"revoked_at"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Active reports whether the token can still mint access tokens
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// Site represents a physical location holding stock (office, warehouse, agency)
type Site struct {
	BaseModel
	Name      string    `json:"name" gorm:"unique;not null"`
	Address   string    `json:"address"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Article represents a stocked item at a given site.
// The same SKU may exist at several sites; each (SKU, site) pair is one row.
type Article struct {
	BaseModel
	SKU         string    `json:"sku" gorm:"not null;index:idx_articles_sku_site,unique"`
	SiteID      string    `json:"site_id" gorm:"not null;index:idx_articles_sku_site,unique"`
	Name        string    `json:"name" gorm:"not null"`
	Category    string    `json:"category"`
	Quantity    int       `json:"quantity" gorm:"not null;default:0"`
	MinQuantity int       `json:"min_quantity" gorm:"not null;default:0"` // Low-stock threshold, 0 = no alerting
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Site *Site `json:"site,omitempty" gorm:"foreignKey:SiteID;constraint:OnDelete:RESTRICT"`
}

// Movement represents a stock movement applied to an article
type Movement struct {
	BaseModel
	ArticleID   string `json:"article_id" gorm:"not null;index"`
	Type        string `json:"type" gorm:"not null"` // ENTRY, EXIT, TRANSFER
	Quantity    int    `json:"quantity" gorm:"not null"`
	FromSiteID  string `json:"from_site_id"` // TRANSFER only
	ToSiteID    string `json:"to_site_id"`   // TRANSFER only
	Reason      string `json:"reason"`
	CreatedByID string `json:"created_by_id" gorm:"not null"`

	Article   *Article `json:"article,omitempty" gorm:"foreignKey:ArticleID;constraint:OnDelete:CASCADE"`
	CreatedBy *User    `json:"created_by,omitempty" gorm:"foreignKey:CreatedByID;references:ID;constraint:OnDelete:SET NULL,OnUpdate:CASCADE"`
}

// Alert represents a low-stock or out-of-stock condition on an article.
// At most one unresolved alert exists per article; the scan worker updates
// the level in place and resolves it when stock recovers.
type Alert struct {
	BaseModel
	ArticleID      string     `json:"article_id" gorm:"not null;index"`
	Level          string     `json:"level" gorm:"not null"` // LOW or OUT
	ResolvedAt     *time.Time `json:"resolved_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	Article *Article `json:"article,omitempty" gorm:"foreignKey:ArticleID;constraint:OnDelete:CASCADE"`
}

// Open reports whether the alert is still unresolved
func (a *Alert) Open() bool {
	return a.ResolvedAt == nil
}

// AuditEntry represents one recorded mutation for the audit trail
type AuditEntry struct {
	BaseModel
	ActorID  string `json:"actor_id" gorm:"index"`
	Action   string `json:"action" gorm:"not null"` // e.g. "article.create", "movement.apply"
	Entity   string `json:"entity" gorm:"not null"`
	EntityID string `json:"entity_id"`
	Detail   string `json:"detail" gorm:"type:text"`

	Actor *User `json:"actor,omitempty" gorm:"foreignKey:ActorID;references:ID;constraint:OnDelete:SET NULL"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	// Collect all models
	models := []interface{}{
		&User{}, &Config{}, &RefreshToken{}, &Site{}, &Article{},
		&Movement{}, &Alert{}, &AuditEntry{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}

// FindByIDWithPreload finds a record by ID with preloading
func FindByIDWithPreload[T any](db *gorm.DB, id string, model *T, preloads ...string) error {
	query := db
	for _, preload := range preloads {
		query = query.Preload(preload)
	}
	return query.Where("id = ?", id).First(model).Error
}
