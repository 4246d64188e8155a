package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haanhtuan/storefront-backend/pkg/db/models"
	"github.com/haanhtuan/storefront-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a pricing repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindActiveAssignment(ctx context.Context, productID uuid.UUID, asOf time.Time) (*models.CampaignAssignment, error) {
	var assignment models.CampaignAssignment
	err := r.db.WithContext(ctx).
		Joins("JOIN sale_campaigns ON sale_campaigns.id = campaign_assignments.campaign_id").
		Where("campaign_assignments.product_id = ?", productID).
		Where("sale_campaigns.status = ?", enums.CampaignStatusActive).
		Where("sale_campaigns.starts_at <= ? AND sale_campaigns.ends_at >= ?", asOf, asOf).
		Order("campaign_assignments.created_at ASC, campaign_assignments.id ASC").
		Preload("Campaign").
		First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}
