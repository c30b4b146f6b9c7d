package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/stockd-dev/stockd/internal/assert"
	"github.com/stockd-dev/stockd/internal/models"
)

// RefreshTokenTTL is the lifetime of a refresh credential
const RefreshTokenTTL = 7 * 24 * time.Hour

var (
	ErrRefreshTokenInvalid = errors.New("refresh token invalid")
	ErrRefreshTokenExpired = errors.New("refresh token expired or revoked")
)

// NewRefreshToken generates an opaque refresh token for the user and stores
// its SHA-256 hash. The plaintext is returned exactly once; it is never
// persisted.
func NewRefreshToken(db *gorm.DB, userID string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	plaintext := base64.RawURLEncoding.EncodeToString(raw)
	assert.Length(plaintext, 43) // 32 bytes, unpadded base64

	record := &models.RefreshToken{
		UserID:    userID,
		TokenHash: hashRefreshToken(plaintext),
		ExpiresAt: time.Now().Add(RefreshTokenTTL),
	}
	if err := db.Create(record).Error; err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return plaintext, nil
}

// LookupRefreshToken resolves a plaintext refresh token to its stored record.
// Returns ErrRefreshTokenInvalid when unknown and ErrRefreshTokenExpired when
// known but no longer usable.
func LookupRefreshToken(db *gorm.DB, plaintext string) (*models.RefreshToken, error) {
	if plaintext == "" {
		return nil, ErrRefreshTokenInvalid
	}

	var record models.RefreshToken
	err := db.Where("token_hash = ?", hashRefreshToken(plaintext)).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefreshTokenInvalid
		}
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	if !record.Active(time.Now()) {
		return nil, ErrRefreshTokenExpired
	}

	return &record, nil
}

// RotateRefreshToken revokes the presented token and issues a replacement
// for the same user. Rotation makes a stolen-but-already-used credential
// detectable: the old hash stops resolving.
func RotateRefreshToken(db *gorm.DB, current *models.RefreshToken) (string, error) {
	now := time.Now()
	if err := db.Model(current).Update("revoked_at", &now).Error; err != nil {
		return "", fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return NewRefreshToken(db, current.UserID)
}

// RevokeRefreshToken marks a presented token as revoked. Unknown tokens are
// not an error; logout is best-effort.
func RevokeRefreshToken(db *gorm.DB, plaintext string) error {
	if plaintext == "" {
		return nil
	}

	now := time.Now()
	err := db.Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", hashRefreshToken(plaintext)).
		Update("revoked_at", &now).Error
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func hashRefreshToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
