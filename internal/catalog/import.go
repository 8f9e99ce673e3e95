package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/merchdrop-backend/internal/variants"
	dbpkg "github.com/angelmondragon/merchdrop-backend/pkg/db"
	"github.com/angelmondragon/merchdrop-backend/pkg/db/models"
	"github.com/angelmondragon/merchdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
)

const localVariantPrefix = "local:"

// ImportVariant is one variant row of an import document.
type ImportVariant struct {
	ExternalVariantID string            `json:"printify_variant_id"`
	Name              string            `json:"name"`
	Size              string            `json:"size"`
	Color             string            `json:"color"`
	SKU               string            `json:"sku"`
	Price             int64             `json:"price_cents"`
	Available         *bool             `json:"available"`
	Stock             *int              `json:"stock"`
	PreviewURL        string            `json:"preview_url"`
	OptionValues      map[string]string `json:"option_values"`
}

// ImportProduct is one product of an import document. Without ExternalID the
// product is local: it is keyed by slug and never touched by provider sync.
type ImportProduct struct {
	ExternalID   string          `json:"printify_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        int64           `json:"price_cents"`
	Thumbnail    string          `json:"thumbnail_url"`
	Images       []string        `json:"images"`
	Active       *bool           `json:"active"`
	Featured     *bool           `json:"featured"`
	PublishState string          `json:"publish_state"`
	Variants     []ImportVariant `json:"variants"`
}

// ImportRequest carries products inline or a URL serving a JSON array of them.
type ImportRequest struct {
	SourceURL string
	Products  []ImportProduct
}

type ImportedProduct struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Slug     string    `json:"slug"`
	Local    bool      `json:"local"`
	Variants int       `json:"variants"`
}

type ImportFailure struct {
	Name string `json:"name"`
	Err  string `json:"error"`
}

type ImportResult struct {
	Imported int               `json:"imported"`
	Products []ImportedProduct `json:"products"`
	Failed   []ImportFailure   `json:"failed"`
}

type importSource interface {
	Fetch(ctx context.Context, url string) ([]ImportProduct, error)
}

type ImporterParams struct {
	Logger *logger.Logger
	DB     txRunner
	Repo   *Repository
	Source importSource
}

// Importer loads products from an import document. Each product is written
// in its own transaction; a failing product is reported and skipped.
type Importer struct {
	logg   *logger.Logger
	db     txRunner
	repo   *Repository
	source importSource
}

func NewImporter(params ImporterParams) (*Importer, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Repo == nil:
		return nil, errors.New("catalog repository required")
	}
	return &Importer{logg: params.Logger, db: params.DB, repo: params.Repo, source: params.Source}, nil
}

func (i *Importer) Import(ctx context.Context, req ImportRequest) (ImportResult, error) {
	products := req.Products
	sourceURL := strings.TrimSpace(req.SourceURL)
	switch {
	case sourceURL != "" && len(products) > 0:
		return ImportResult{}, pkgerrors.New(pkgerrors.CodeValidation, "send either source_url or products, not both")
	case sourceURL != "":
		if i.source == nil {
			return ImportResult{}, pkgerrors.New(pkgerrors.CodeConfiguration, "import source unavailable")
		}
		fetched, err := i.source.Fetch(ctx, sourceURL)
		if err != nil {
			return ImportResult{}, err
		}
		products = fetched
		ctx = i.logg.WithField(ctx, "source_url", sourceURL)
	case len(products) == 0:
		return ImportResult{}, pkgerrors.New(pkgerrors.CodeValidation, "source_url or products is required")
	}

	result := ImportResult{Products: []ImportedProduct{}, Failed: []ImportFailure{}}
	for _, in := range products {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		imported, err := i.importProduct(ctx, in)
		if err != nil {
			i.logg.Error(i.logg.WithField(ctx, "product_name", in.Name), "catalog.import.product_failed", err)
			result.Failed = append(result.Failed, ImportFailure{Name: in.Name, Err: err.Error()})
			continue
		}
		result.Imported++
		result.Products = append(result.Products, imported)
	}

	i.logg.Info(i.logg.WithFields(ctx, map[string]any{
		"received": len(products),
		"imported": result.Imported,
		"failed":   len(result.Failed),
	}), "catalog.import.completed")
	return result, nil
}

func (i *Importer) importProduct(ctx context.Context, in ImportProduct) (ImportedProduct, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return ImportedProduct{}, errors.New("name is required")
	}
	state := enums.PublishStatePublished
	if strings.TrimSpace(in.PublishState) != "" {
		parsed, err := enums.ParsePublishState(in.PublishState)
		if err != nil {
			return ImportedProduct{}, err
		}
		state = parsed
	}
	price := in.Price
	if price <= 0 {
		price = defaultProductPrice
	}
	images := pq.StringArray{}
	for _, img := range in.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	thumbnail := strings.TrimSpace(in.Thumbnail)
	if thumbnail == "" && len(images) > 0 {
		thumbnail = images[0]
	}
	externalID := strings.TrimSpace(in.ExternalID)

	var out ImportedProduct
	err := i.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := i.repo.WithTx(tx)

		existing, err := i.findExisting(ctx, repo, externalID, Slugify(name))
		if err != nil {
			return err
		}
		product := models.Product{
			ID:           uuid.New(),
			Name:         name,
			Description:  in.Description,
			Price:        price,
			Thumbnail:    thumbnail,
			Images:       images,
			Active:       true,
			PublishState: state,
		}
		if externalID != "" {
			product.ExternalID = &externalID
		}
		if existing != nil {
			product.ID = existing.ID
			product.ExternalShopID = existing.ExternalShopID
			product.Active = existing.Active
			product.Featured = existing.Featured
		}
		if in.Active != nil {
			product.Active = *in.Active
		}
		if in.Featured != nil {
			product.Featured = *in.Featured
		}

		product.Slug, err = i.resolveSlug(ctx, repo, name, product.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			err = repo.UpdateImported(ctx, &product)
		} else {
			err = repo.CreateProduct(ctx, &product)
		}
		if err != nil {
			return fmt.Errorf("save product: %w", err)
		}

		count, err := i.importVariants(ctx, repo, &product, in.Variants)
		if err != nil {
			return err
		}
		out = ImportedProduct{ID: product.ID, Name: product.Name, Slug: product.Slug, Local: externalID == "", Variants: count}
		return nil
	})
	return out, err
}

// findExisting matches provider products by external id and local products by
// slug among rows without an external id.
func (i *Importer) findExisting(ctx context.Context, repo *Repository, externalID, slug string) (*models.Product, error) {
	var (
		existing *models.Product
		err      error
	)
	if externalID != "" {
		existing, err = repo.FindByExternalID(ctx, externalID)
	} else {
		existing, err = repo.FindLocalBySlug(ctx, slug)
	}
	switch {
	case err == nil:
		return existing, nil
	case dbpkg.IsNotFound(err):
		return nil, nil
	}
	return nil, fmt.Errorf("load existing product: %w", err)
}

func (i *Importer) resolveSlug(ctx context.Context, repo *Repository, name string, productID uuid.UUID) (string, error) {
	base := Slugify(name)
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
	suffixed := base + "-" + collisionSuffix(productID.String())
	i.logg.Warn(i.logg.WithFields(ctx, map[string]any{"slug": base, "resolved": suffixed}), "catalog.import.slug_collision")
	return suffixed, nil
}

func (i *Importer) importVariants(ctx context.Context, repo *Repository, product *models.Product, rows []ImportVariant) (int, error) {
	seen := make(map[string]struct{}, len(rows))
	count := 0
	for _, in := range rows {
		size := firstNonBlank(in.Size, variants.DefaultSize)
		color := firstNonBlank(in.Color, variants.DefaultColor)
		key := variants.Key(size, color)
		canonical := strings.ToLower(key)
		if _, dup := seen[canonical]; dup {
			i.logg.Warn(i.logg.WithField(ctx, "variant_key", key), "catalog.import.duplicate_variant_skipped")
			continue
		}
		seen[canonical] = struct{}{}

		extVariantID := strings.TrimSpace(in.ExternalVariantID)
		if extVariantID == "" {
			extVariantID = localVariantPrefix + product.ID.String() + ":" + canonical
		}
		price := in.Price
		if price <= 0 {
			price = product.Price
		}
		available := true
		if in.Available != nil {
			available = *in.Available
		}
		stock := defaultVariantStock
		if in.Stock != nil {
			stock = *in.Stock
		}
		optionValues := datatypes.JSONMap{}
		for group, value := range in.OptionValues {
			optionValues[group] = value
		}

		row := models.Variant{
			ProductID:         product.ID,
			ExternalVariantID: extVariantID,
			Name:              firstNonBlank(in.Name, key),
			Size:              size,
			Color:             color,
			OptionValues:      optionValues,
			SKU:               firstNonBlank(in.SKU, extVariantID),
			Price:             price,
			Available:         available,
			Stock:             stock,
			ImageURL:          firstNonBlank(in.PreviewURL, product.Thumbnail),
		}
		if err := repo.UpsertVariant(ctx, &row); err != nil {
			return count, fmt.Errorf("upsert variant %s: %w", extVariantID, err)
		}
		count++
	}
	return count, nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
