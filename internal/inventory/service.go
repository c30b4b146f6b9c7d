package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/stockd-dev/stockd/internal/models"
)

var (
	ErrArticleNotFound   = errors.New("article not found")
	ErrSiteNotFound      = errors.New("site not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidMovement   = errors.New("invalid movement")
)

// Service applies stock movements to articles
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "inventory_service").Logger(),
	}
}

// MovementInput describes a movement to apply
type MovementInput struct {
	ArticleID string
	Type      string // ENTRY, EXIT, TRANSFER
	Quantity  int
	ToSiteID  string // TRANSFER destination
	Reason    string
	ActorID   string
}

// Apply records a movement and updates article quantities in one transaction.
// Quantities never go negative: an EXIT or TRANSFER larger than the current
// stock is refused with ErrInsufficientStock.
func (s *Service) Apply(ctx context.Context, input MovementInput) (*models.Movement, error) {
	if input.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidMovement)
	}

	var movement *models.Movement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var article models.Article
		if err := tx.Where("id = ?", input.ArticleID).First(&article).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrArticleNotFound
			}
			return fmt.Errorf("failed to load article: %w", err)
		}

		var err error
		switch input.Type {
		case models.MovementEntry:
			movement, err = s.applyEntry(tx, &article, input)
		case models.MovementExit:
			movement, err = s.applyExit(tx, &article, input)
		case models.MovementTransfer:
			movement, err = s.applyTransfer(tx, &article, input)
		default:
			return fmt.Errorf("%w: unknown type %q", ErrInvalidMovement, input.Type)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("movement_id", movement.ID).
		Str("article_id", input.ArticleID).
		Str("type", input.Type).
		Int("quantity", input.Quantity).
		Msg("Movement applied")

	return movement, nil
}

func (s *Service) applyEntry(tx *gorm.DB, article *models.Article, input MovementInput) (*models.Movement, error) {
	if err := tx.Model(article).Update("quantity", gorm.Expr("quantity + ?", input.Quantity)).Error; err != nil {
		return nil, fmt.Errorf("failed to update quantity: %w", err)
	}
	return s.record(tx, article, input, "", "")
}

func (s *Service) applyExit(tx *gorm.DB, article *models.Article, input MovementInput) (*models.Movement, error) {
	if article.Quantity < input.Quantity {
		return nil, fmt.Errorf("%w: %d available, %d requested", ErrInsufficientStock, article.Quantity, input.Quantity)
	}
	if err := tx.Model(article).Update("quantity", gorm.Expr("quantity - ?", input.Quantity)).Error; err != nil {
		return nil, fmt.Errorf("failed to update quantity: %w", err)
	}
	return s.record(tx, article, input, "", "")
}

// applyTransfer moves stock between sites. The destination row is the
// article with the same SKU at the target site, created on first transfer.
func (s *Service) applyTransfer(tx *gorm.DB, article *models.Article, input MovementInput) (*models.Movement, error) {
	if input.ToSiteID == "" {
		return nil, fmt.Errorf("%w: transfer requires a destination site", ErrInvalidMovement)
	}
	if input.ToSiteID == article.SiteID {
		return nil, fmt.Errorf("%w: transfer within the same site", ErrInvalidMovement)
	}
	if article.Quantity < input.Quantity {
		return nil, fmt.Errorf("%w: %d available, %d requested", ErrInsufficientStock, article.Quantity, input.Quantity)
	}

	var site models.Site
	if err := tx.Where("id = ?", input.ToSiteID).First(&site).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSiteNotFound
		}
		return nil, fmt.Errorf("failed to load destination site: %w", err)
	}

	var dest models.Article
	err := tx.Where("sku = ? AND site_id = ?", article.SKU, input.ToSiteID).First(&dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		dest = models.Article{
			SKU:         article.SKU,
			SiteID:      input.ToSiteID,
			Name:        article.Name,
			Category:    article.Category,
			Quantity:    0,
			MinQuantity: article.MinQuantity,
		}
		if err := tx.Create(&dest).Error; err != nil {
			return nil, fmt.Errorf("failed to create destination article: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load destination article: %w", err)
	}

	if err := tx.Model(article).Update("quantity", gorm.Expr("quantity - ?", input.Quantity)).Error; err != nil {
		return nil, fmt.Errorf("failed to update source quantity: %w", err)
	}
	if err := tx.Model(&dest).Update("quantity", gorm.Expr("quantity + ?", input.Quantity)).Error; err != nil {
		return nil, fmt.Errorf("failed to update destination quantity: %w", err)
	}

	return s.record(tx, article, input, article.SiteID, input.ToSiteID)
}

func (s *Service) record(tx *gorm.DB, article *models.Article, input MovementInput, fromSite, toSite string) (*models.Movement, error) {
	movement := &models.Movement{
		ArticleID:   article.ID,
		Type:        input.Type,
		Quantity:    input.Quantity,
		FromSiteID:  fromSite,
		ToSiteID:    toSite,
		Reason:      input.Reason,
		CreatedByID: input.ActorID,
	}
	if err := tx.Create(movement).Error; err != nil {
		return nil, fmt.Errorf("failed to record movement: %w", err)
	}
	return movement, nil
}
