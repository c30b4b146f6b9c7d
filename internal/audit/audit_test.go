package audit

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stockd-dev/stockd/internal/models"
)

func setup(t *testing.T) (*gorm.DB, *Recorder) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db, NewRecorder(db, zerolog.Nop())
}

func TestRecord(t *testing.T) {
	db, recorder := setup(t)

	recorder.Record(context.Background(), "actor-1", "article.create", "article", "art-1", `{"sku":"SSD-1TB"}`)

	var entry models.AuditEntry
	if err := db.First(&entry).Error; err != nil {
		t.Fatalf("no audit entry recorded: %v", err)
	}
	if entry.ActorID != "actor-1" || entry.Action != "article.create" || entry.EntityID != "art-1" {
		t.Errorf("entry = %+v, want actor-1/article.create/art-1", entry)
	}
}

func TestPurge(t *testing.T) {
	db, recorder := setup(t)
	ctx := context.Background()

	old := models.AuditEntry{ActorID: "a", Action: "movement.apply", Entity: "movement"}
	recent := models.AuditEntry{ActorID: "a", Action: "movement.apply", Entity: "movement"}
	if err := db.Create(&old).Error; err != nil {
		t.Fatalf("failed to create entry: %v", err)
	}
	if err := db.Create(&recent).Error; err != nil {
		t.Fatalf("failed to create entry: %v", err)
	}
	// Backdate one entry past the retention window
	if err := db.Model(&old).Update("created_at", time.Now().AddDate(0, 0, -120)).Error; err != nil {
		t.Fatalf("failed to backdate entry: %v", err)
	}

	deleted, err := recorder.Purge(ctx, 90)
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("Purge() deleted = %d, want 1", deleted)
	}

	var count int64
	db.Model(&models.AuditEntry{}).Count(&count)
	if count != 1 {
		t.Errorf("remaining entries = %d, want 1", count)
	}

	// Retention disabled: nothing deleted
	deleted, err = recorder.Purge(ctx, 0)
	if err != nil {
		t.Fatalf("Purge(0) error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("Purge(0) deleted = %d, want 0", deleted)
	}
}
