package alerts

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stockd-dev/stockd/internal/models"
)

func setup(t *testing.T) (*gorm.DB, *Service, *models.Article) {
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

	site := &models.Site{Name: "HQ"}
	if err := db.Create(site).Error; err != nil {
		t.Fatalf("failed to create site: %v", err)
	}
	article := &models.Article{
		SKU: "SSD-1TB", SiteID: site.ID, Name: "1TB SSD", Quantity: 10, MinQuantity: 3,
	}
	if err := db.Create(article).Error; err != nil {
		t.Fatalf("failed to create article: %v", err)
	}

	return db, NewService(db, zerolog.Nop()), article
}

func setQuantity(t *testing.T, db *gorm.DB, article *models.Article, qty int) {
	t.Helper()
	if err := db.Model(article).Update("quantity", qty).Error; err != nil {
		t.Fatalf("failed to set quantity: %v", err)
	}
}

func openAlert(t *testing.T, db *gorm.DB, articleID string) *models.Alert {
	t.Helper()
	var alert models.Alert
	err := db.Where("article_id = ? AND resolved_at IS NULL", articleID).First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		t.Fatalf("failed to load open alert: %v", err)
	}
	return &alert
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		min      int
		want     string
	}{
		{"healthy", 10, 3, ""},
		{"at threshold", 3, 3, models.AlertLevelLow},
		{"below threshold", 1, 3, models.AlertLevelLow},
		{"empty", 0, 3, models.AlertLevelOut},
		{"empty without threshold", 0, 0, models.AlertLevelOut},
		{"no threshold", 1, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			article := &models.Article{Quantity: tt.quantity, MinQuantity: tt.min}
			if got := LevelFor(article); got != tt.want {
				t.Errorf("LevelFor(qty=%d, min=%d) = %q, want %q", tt.quantity, tt.min, got, tt.want)
			}
		})
	}
}

func TestScanArticleRaisesAndResolves(t *testing.T) {
	db, svc, article := setup(t)
	ctx := context.Background()

	// Healthy stock: no alert
	if err := svc.ScanArticle(ctx, article.ID); err != nil {
		t.Fatalf("ScanArticle() error = %v", err)
	}
	if openAlert(t, db, article.ID) != nil {
		t.Fatal("alert raised for healthy stock")
	}

	// Drop to threshold: LOW
	setQuantity(t, db, article, 3)
	if err := svc.ScanArticle(ctx, article.ID); err != nil {
		t.Fatalf("ScanArticle() error = %v", err)
	}
	alert := openAlert(t, db, article.ID)
	if alert == nil || alert.Level != models.AlertLevelLow {
		t.Fatalf("alert = %+v, want open LOW alert", alert)
	}

	// Drop to zero: same alert escalates to OUT, no second row
	setQuantity(t, db, article, 0)
	if err := svc.ScanArticle(ctx, article.ID); err != nil {
		t.Fatalf("ScanArticle() error = %v", err)
	}
	escalated := openAlert(t, db, article.ID)
	if escalated == nil || escalated.Level != models.AlertLevelOut {
		t.Fatalf("alert = %+v, want open OUT alert", escalated)
	}
	if escalated.ID != alert.ID {
		t.Error("escalation created a second alert instead of updating in place")
	}
	var count int64
	db.Model(&models.Alert{}).Where("article_id = ?", article.ID).Count(&count)
	if count != 1 {
		t.Errorf("alert rows = %d, want 1", count)
	}

	// Restock: alert resolves
	setQuantity(t, db, article, 20)
	if err := svc.ScanArticle(ctx, article.ID); err != nil {
		t.Fatalf("ScanArticle() error = %v", err)
	}
	if openAlert(t, db, article.ID) != nil {
		t.Error("alert still open after restock")
	}
}

func TestScanArticleResolvesOrphanAlert(t *testing.T) {
	db, svc, article := setup(t)
	ctx := context.Background()

	setQuantity(t, db, article, 0)
	if err := svc.ScanArticle(ctx, article.ID); err != nil {
		t.Fatalf("ScanArticle() error = %v", err)
	}
	if err := db.Delete(&models.Article{}, "id = ?", article.ID).Error; err != nil {
		t.Fatalf("failed to delete article: %v", err)
	}

	if err := svc.ScanArticle(ctx, article.ID); err != nil {
		t.Fatalf("ScanArticle() on deleted article error = %v", err)
	}
	if openAlert(t, db, article.ID) != nil {
		t.Error("alert for deleted article left open")
	}
}

func TestScanAll(t *testing.T) {
	db, svc, article := setup(t)
	ctx := context.Background()

	second := &models.Article{
		SKU: "KB-AZERTY", SiteID: article.SiteID, Name: "Keyboard", Quantity: 0, MinQuantity: 2,
	}
	if err := db.Create(second).Error; err != nil {
		t.Fatalf("failed to create second article: %v", err)
	}

	if err := svc.ScanAll(ctx); err != nil {
		t.Fatalf("ScanAll() error = %v", err)
	}

	if openAlert(t, db, article.ID) != nil {
		t.Error("alert raised for healthy article")
	}
	alert := openAlert(t, db, second.ID)
	if alert == nil || alert.Level != models.AlertLevelOut {
		t.Errorf("alert = %+v, want open OUT alert for empty article", alert)
	}
}

func TestAcknowledge(t *testing.T) {
	db, svc, article := setup(t)
	ctx := context.Background()

	setQuantity(t, db, article, 0)
	if err := svc.ScanArticle(ctx, article.ID); err != nil {
		t.Fatalf("ScanArticle() error = %v", err)
	}
	alert := openAlert(t, db, article.ID)

	if err := svc.Acknowledge(ctx, alert.ID); err != nil {
		t.Fatalf("Acknowledge() error = %v", err)
	}

	var reloaded models.Alert
	if err := db.Where("id = ?", alert.ID).First(&reloaded).Error; err != nil {
		t.Fatalf("failed to reload alert: %v", err)
	}
	if reloaded.AcknowledgedAt == nil {
		t.Error("AcknowledgedAt not set")
	}

	// Second acknowledge and unknown IDs report not found
	if err := svc.Acknowledge(ctx, alert.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("re-acknowledge error = %v, want gorm.ErrRecordNotFound", err)
	}
	if err := svc.Acknowledge(ctx, "01UNKNOWN"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("unknown alert error = %v, want gorm.ErrRecordNotFound", err)
	}
}
