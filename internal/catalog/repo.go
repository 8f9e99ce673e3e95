package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/merchdrop-backend/pkg/db/models"
	"github.com/angelmondragon/merchdrop-backend/pkg/enums"
	"github.com/angelmondragon/merchdrop-backend/pkg/pagination"
)

var (
	providerProductColumns = []string{
		"name", "slug", "description", "price", "thumbnail", "images", "external_shop_id", "updated_at",
	}
	providerVariantColumns = []string{
		"product_id", "name", "size", "color", "option_values", "sku", "price", "available", "stock", "image_url", "updated_at",
	}
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) FindByExternalID(ctx context.Context, externalID string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindLocalBySlug finds a product that is not linked to a provider listing.
func (r *Repository) FindLocalBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("slug = ? AND external_id IS NULL", slug).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindActiveBySlug loads a storefront product with its variants.
func (r *Repository) FindActiveBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("external_variant_id ASC")
		}).
		Where("slug = ? AND active = ?", slug, true).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads products keyed by id with their variants.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Preload("Variants").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// ListFilter narrows the storefront listing.
type ListFilter struct {
	Limit        int
	Cursor       *pagination.Cursor
	FeaturedOnly bool
}

// ListActive returns one page of active products, newest first. One extra
// row is fetched so callers can tell whether another page exists.
func (r *Repository) ListActive(ctx context.Context, filter ListFilter) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Where("active = ?", true)
	if filter.FeaturedOnly {
		query = query.Where("featured = ?", true)
	}
	if filter.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID)
	}
	var rows []models.Product
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(filter.Limit)).
		Find(&rows).Error
	return rows, err
}

// ListProviderBacked returns every product linked to a provider listing.
func (r *Repository) ListProviderBacked(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("external_id IS NOT NULL").
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// UpsertProduct inserts p or refreshes the provider-owned columns of the row
// sharing its external id. Active, featured and publish_state are never
// overwritten here.
func (r *Repository) UpsertProduct(ctx context.Context, p *models.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns(providerProductColumns),
		}).
		Create(p).Error
}

func (r *Repository) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

// UpdateImported overwrites every imported column, flags included.
func (r *Repository) UpdateImported(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"name":          p.Name,
			"slug":          p.Slug,
			"description":   p.Description,
			"price":         p.Price,
			"thumbnail":     p.Thumbnail,
			"images":        p.Images,
			"external_id":   p.ExternalID,
			"active":        p.Active,
			"featured":      p.Featured,
			"publish_state": p.PublishState,
		}).Error
}

func (r *Repository) UpsertVariant(ctx context.Context, v *models.Variant) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_variant_id"}},
			DoUpdates: clause.AssignmentColumns(providerVariantColumns),
		}).
		Create(v).Error
}

// PruneVariants deletes the product's variants whose external id is not in keep.
func (r *Repository) PruneVariants(ctx context.Context, productID uuid.UUID, keep []string) (int64, error) {
	query := r.db.WithContext(ctx).Where("product_id = ?", productID)
	if len(keep) > 0 {
		query = query.Where("external_variant_id NOT IN ?", keep)
	}
	res := query.Delete(&models.Variant{})
	return res.RowsAffected, res.Error
}

// UpdatePublishState applies a provider publish transition by external id.
func (r *Repository) UpdatePublishState(ctx context.Context, externalID string, state enums.PublishState, active *bool) (int64, error) {
	updates := map[string]any{"publish_state": state}
	if active != nil {
		updates["active"] = *active
	}
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("external_id = ?", externalID).
		Updates(updates)
	return res.RowsAffected, res.Error
}
