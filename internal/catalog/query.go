package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/angelmondragon/merchdrop-backend/internal/variants"
	dbpkg "github.com/angelmondragon/merchdrop-backend/pkg/db"
	"github.com/angelmondragon/merchdrop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/pagination"
)

type ProductSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	Thumbnail   string    `json:"thumbnail"`
	Featured    bool      `json:"featured"`
}

type ColorSwatch struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

type VariantView struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Size      string    `json:"size"`
	Color     string    `json:"color"`
	SKU       string    `json:"sku"`
	Price     int64     `json:"price"`
	Available bool      `json:"available"`
	ImageURL  string    `json:"image_url"`
}

type ProductDetail struct {
	ProductSummary
	Images   []string      `json:"images"`
	Colors   []ColorSwatch `json:"colors"`
	Sizes    []string      `json:"sizes"`
	Variants []VariantView `json:"variants"`
}

type ListInput struct {
	Limit        int
	Cursor       string
	FeaturedOnly bool
}

type ListResult struct {
	Products   []ProductSummary `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// Query serves the read-only storefront catalog.
type Query struct {
	repo *Repository
}

func NewQuery(repo *Repository) (*Query, error) {
	if repo == nil {
		return nil, errors.New("catalog repository required")
	}
	return &Query{repo: repo}, nil
}

func (q *Query) List(ctx context.Context, input ListInput) (ListResult, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return ListResult{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(input.Limit)
	rows, err := q.repo.ListActive(ctx, ListFilter{Limit: limit, Cursor: cursor, FeaturedOnly: input.FeaturedOnly})
	if err != nil {
		return ListResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	rows, next := pagination.Trim(rows, limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	result := ListResult{Products: make([]ProductSummary, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		result.Products = append(result.Products, summaryOf(row))
	}
	return result, nil
}

func (q *Query) Detail(ctx context.Context, slug string) (*ProductDetail, error) {
	product, err := q.repo.FindActiveBySlug(ctx, slug)
	if dbpkg.IsNotFound(err) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	organized := variants.Organize(product.Variants)
	detail := &ProductDetail{
		ProductSummary: summaryOf(*product),
		Images:         append([]string{}, product.Images...),
		Colors:         make([]ColorSwatch, 0, len(organized.Colors)),
		Sizes:          append([]string{}, organized.Sizes...),
		Variants:       make([]VariantView, 0, len(product.Variants)),
	}
	for _, color := range organized.Colors {
		detail.Colors = append(detail.Colors, ColorSwatch{Name: color, Hex: variants.ColorHex(color)})
	}
	for _, size := range organized.Sizes {
		for _, color := range organized.Colors {
			v, ok := organized.Lookup(size, color)
			if !ok {
				continue
			}
			detail.Variants = append(detail.Variants, VariantView{
				ID:        v.ID,
				Name:      v.Name,
				Size:      size,
				Color:     color,
				SKU:       v.SKU,
				Price:     v.Price,
				Available: v.Available,
				ImageURL:  v.ImageURL,
			})
		}
	}
	return detail, nil
}

func summaryOf(p models.Product) ProductSummary {
	return ProductSummary{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       p.Price,
		Thumbnail:   p.Thumbnail,
		Featured:    p.Featured,
	}
}
