package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/multierr"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/merchdrop-backend/internal/variants"
	dbpkg "github.com/angelmondragon/merchdrop-backend/pkg/db"
	"github.com/angelmondragon/merchdrop-backend/pkg/db/models"
	"github.com/angelmondragon/merchdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
	"github.com/angelmondragon/merchdrop-backend/pkg/printify"
)

const (
	defaultProductPrice = 2999
	defaultVariantStock = 100
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type catalogProvider interface {
	ShopID() string
	ListAllProducts(ctx context.Context) ([]printify.ProductSummary, error)
	GetProduct(ctx context.Context, productID string) (*printify.Product, error)
}

// ProductFailure records one product that could not be synced.
type ProductFailure struct {
	ExternalID string
	Err        error
}

// SyncResult folds the outcome of every product visited in one run.
type SyncResult struct {
	SyncedCount            int
	SyncedProductIDs       []uuid.UUID
	PendingImageProductIDs []string
	Skipped                []string
	Failed                 []ProductFailure
}

// Err combines every per-product failure, or nil when none occurred.
func (r SyncResult) Err() error {
	var combined error
	for _, f := range r.Failed {
		combined = multierr.Append(combined, fmt.Errorf("%s: %w", f.ExternalID, f.Err))
	}
	return combined
}

type outcome int

const (
	outcomeSynced outcome = iota
	outcomePendingImages
	outcomeSkipped
)

type EngineParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Repo     *Repository
	Provider catalogProvider
}

// Engine mirrors the provider catalog into local products and variants.
type Engine struct {
	logg     *logger.Logger
	db       txRunner
	repo     *Repository
	provider catalogProvider
}

func NewEngine(params EngineParams) (*Engine, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.DB == nil {
		return nil, errors.New("db runner required")
	}
	if params.Repo == nil {
		return nil, errors.New("catalog repository required")
	}
	if params.Provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "printify is not configured")
	}
	return &Engine{
		logg:     params.Logger,
		db:       params.DB,
		repo:     params.Repo,
		provider: params.Provider,
	}, nil
}

// Sync walks every provider product. A listing failure aborts the run; a
// failing product is recorded in the result and the loop continues.
func (e *Engine) Sync(ctx context.Context) (SyncResult, error) {
	ctx = e.logg.WithField(ctx, "shop_id", e.provider.ShopID())
	summaries, err := e.provider.ListAllProducts(ctx)
	if err != nil {
		return SyncResult{}, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "list provider products")
	}

	var result SyncResult
	for _, summary := range summaries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		productCtx := e.logg.WithProductID(ctx, summary.ID)
		productID, out, err := e.syncProduct(productCtx, summary.ID)
		if err != nil {
			e.logg.Error(productCtx, "catalog.sync.product_failed", err)
			result.Failed = append(result.Failed, ProductFailure{ExternalID: summary.ID, Err: err})
			continue
		}
		switch out {
		case outcomePendingImages:
			e.logg.Info(productCtx, "catalog.sync.pending_images")
			result.PendingImageProductIDs = append(result.PendingImageProductIDs, summary.ID)
		case outcomeSkipped:
			e.logg.Info(productCtx, "catalog.sync.no_eligible_variants")
			result.Skipped = append(result.Skipped, summary.ID)
		default:
			result.SyncedCount++
			result.SyncedProductIDs = append(result.SyncedProductIDs, productID)
		}
	}

	summaryCtx := e.logg.WithFields(ctx, map[string]any{
		"listed":         len(summaries),
		"synced":         result.SyncedCount,
		"pending_images": len(result.PendingImageProductIDs),
		"skipped":        len(result.Skipped),
		"failed":         len(result.Failed),
	})
	if combined := result.Err(); combined != nil {
		e.logg.Error(summaryCtx, "catalog.sync.completed_with_failures", combined)
	} else {
		e.logg.Info(summaryCtx, "catalog.sync.completed")
	}
	return result, nil
}

func (e *Engine) syncProduct(ctx context.Context, externalID string) (uuid.UUID, outcome, error) {
	detail, err := e.provider.GetProduct(ctx, externalID)
	if err != nil {
		return uuid.Nil, outcomeSynced, fmt.Errorf("fetch product detail: %w", err)
	}
	images := imageURLs(detail.Images)
	if len(images) == 0 {
		return uuid.Nil, outcomePendingImages, nil
	}
	eligible := eligibleVariants(detail.Variants)
	if len(eligible) == 0 {
		return uuid.Nil, outcomeSkipped, nil
	}

	price := eligible[0].Price
	if price <= 0 {
		price = defaultProductPrice
	}
	shopID := e.provider.ShopID()
	extID := detail.ID
	if extID == "" {
		extID = externalID
	}

	var productID uuid.UUID
	err = e.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)

		product := models.Product{
			Name:           detail.Title,
			Description:    detail.Description,
			Price:          price,
			Thumbnail:      images[0],
			Images:         images,
			ExternalID:     &extID,
			ExternalShopID: &shopID,
			Active:         true,
			Featured:       false,
			PublishState:   enums.PublishStatePublished,
		}
		existing, err := repo.FindByExternalID(ctx, extID)
		switch {
		case err == nil:
			product.ID = existing.ID
			product.Active = existing.Active
			product.Featured = existing.Featured
			product.PublishState = existing.PublishState
		case dbpkg.IsNotFound(err):
			product.ID = uuid.New()
		default:
			return fmt.Errorf("load existing product: %w", err)
		}

		slug, err := e.resolveSlug(ctx, repo, detail.Title, extID, product.ID)
		if err != nil {
			return err
		}
		product.Slug = slug

		if err := repo.UpsertProduct(ctx, &product); err != nil {
			return fmt.Errorf("upsert product: %w", err)
		}
		stored, err := repo.FindByExternalID(ctx, extID)
		if err != nil {
			return fmt.Errorf("reload product: %w", err)
		}
		productID = stored.ID

		kept, err := e.upsertVariants(ctx, repo, stored, detail, eligible)
		if err != nil {
			return err
		}
		pruned, err := repo.PruneVariants(ctx, stored.ID, kept)
		if err != nil {
			return fmt.Errorf("prune variants: %w", err)
		}
		if pruned > 0 {
			e.logg.Info(e.logg.WithField(ctx, "pruned", pruned), "catalog.sync.variants_pruned")
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, outcomeSynced, err
	}
	return productID, outcomeSynced, nil
}

func (e *Engine) upsertVariants(ctx context.Context, repo *Repository, product *models.Product, detail *printify.Product, eligible []printify.Variant) ([]string, error) {
	seen := make(map[string]struct{}, len(eligible))
	kept := make([]string, 0, len(eligible))
	for _, v := range eligible {
		resolved := variants.Resolve(v, detail.Options)
		if _, dup := seen[resolved.Key()]; dup {
			e.logg.Warn(e.logg.WithFields(ctx, map[string]any{
				"external_variant_id": v.ID,
				"variant_key":         resolved.Key(),
			}), "catalog.sync.duplicate_variant_skipped")
			continue
		}
		seen[resolved.Key()] = struct{}{}

		extVariantID := strconv.Itoa(v.ID)
		sku := strings.TrimSpace(v.SKU)
		if sku == "" {
			sku = fmt.Sprintf("%s-%s", detail.ID, extVariantID)
		}
		price := v.Price
		if price <= 0 {
			price = product.Price
		}
		name := strings.TrimSpace(v.Title)
		if name == "" {
			name = variants.Key(resolved.Size, resolved.Color)
		}
		optionValues := datatypes.JSONMap{}
		for group, value := range resolved.OptionValues {
			optionValues[group] = value
		}

		row := models.Variant{
			ProductID:         product.ID,
			ExternalVariantID: extVariantID,
			Name:              name,
			Size:              resolved.Size,
			Color:             resolved.Color,
			OptionValues:      optionValues,
			SKU:               sku,
			Price:             price,
			Available:         v.IsAvailable,
			Stock:             defaultVariantStock,
			ImageURL:          variants.PreviewImage(v, detail.Images, product.Thumbnail),
		}
		if err := repo.UpsertVariant(ctx, &row); err != nil {
			return nil, fmt.Errorf("upsert variant %s: %w", extVariantID, err)
		}
		kept = append(kept, extVariantID)
	}
	return kept, nil
}

// resolveSlug keeps the title slug unless another product already owns it,
// in which case the external id prefix is appended.
func (e *Engine) resolveSlug(ctx context.Context, repo *Repository, title, externalID string, productID uuid.UUID) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = "product"
	}
	owner, err := repo.FindBySlug(ctx, base)
	switch {
	case dbpkg.IsNotFound(err):
		return base, nil
	case err != nil:
		return "", fmt.Errorf("check slug: %w", err)
	case owner.ID == productID:
		return base, nil
	}
	suffixed := base + "-" + collisionSuffix(externalID)
	e.logg.Warn(e.logg.WithFields(ctx, map[string]any{
		"slug":     base,
		"resolved": suffixed,
	}), "catalog.sync.slug_collision")
	return suffixed, nil
}

func eligibleVariants(all []printify.Variant) []printify.Variant {
	out := make([]printify.Variant, 0, len(all))
	for _, v := range all {
		if v.IsEnabled && v.IsAvailable {
			out = append(out, v)
		}
	}
	return out
}

func imageURLs(images []printify.Image) pq.StringArray {
	out := pq.StringArray{}
	for _, img := range images {
		if src := strings.TrimSpace(img.Src); src != "" {
			out = append(out, src)
		}
	}
	return out
}
