package catalog

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/merchdrop-backend/pkg/db"
	"github.com/angelmondragon/merchdrop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/merchdrop-backend/pkg/db/models"
	"github.com/angelmondragon/merchdrop-backend/pkg/enums"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
	"github.com/angelmondragon/merchdrop-backend/pkg/printify"
)

type fakeProvider struct {
	products map[string]*printify.Product
	order    []string
	listErr  error
	getErr   map[string]error
	acks     []string
	ackErr   error
}

func newFakeProvider(products ...*printify.Product) *fakeProvider {
	f := &fakeProvider{products: map[string]*printify.Product{}, getErr: map[string]error{}}
	for _, p := range products {
		f.products[p.ID] = p
		f.order = append(f.order, p.ID)
	}
	return f
}

func (f *fakeProvider) ShopID() string { return "shop-1" }

func (f *fakeProvider) ListAllProducts(context.Context) ([]printify.ProductSummary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]printify.ProductSummary, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, printify.ProductSummary{ID: id, Title: f.products[id].Title})
	}
	return out, nil
}

func (f *fakeProvider) GetProduct(_ context.Context, id string) (*printify.Product, error) {
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *p
	return &copied, nil
}

func (f *fakeProvider) PublishingSucceeded(_ context.Context, id string, ext printify.PublishingExternal) error {
	f.acks = append(f.acks, "succeeded:"+id+":"+ext.Handle)
	return f.ackErr
}

func (f *fakeProvider) PublishingFailed(_ context.Context, id, reason string) error {
	f.acks = append(f.acks, "failed:"+id+":"+reason)
	return f.ackErr
}

func teeProduct(id, title string) *printify.Product {
	return &printify.Product{
		ID:          id,
		Title:       title,
		Description: "Soft cotton tee",
		Options: []printify.Option{
			{Name: "Colors", Type: "color", Values: []printify.OptionValue{{ID: 1, Title: "Black"}, {ID: 2, Title: "White"}}},
			{Name: "Sizes", Type: "size", Values: []printify.OptionValue{{ID: 10, Title: "S"}, {ID: 11, Title: "M"}}},
		},
		Variants: []printify.Variant{
			{ID: 101, Price: 2500, Title: "Black / S", IsEnabled: true, IsAvailable: true, Options: []int{1, 10}},
			{ID: 102, Price: 2500, Title: "Black / M", IsEnabled: true, IsAvailable: true, Options: []int{1, 11}},
			{ID: 103, Price: 2600, Title: "White / M", IsEnabled: true, IsAvailable: true, Options: []int{2, 11}},
			{ID: 104, Price: 2600, Title: "White / S", IsEnabled: false, IsAvailable: true, Options: []int{2, 10}},
		},
		Images: []printify.Image{
			{Src: "https://img.test/front-black.png", VariantIDs: []int{101, 102}, Position: "front"},
			{Src: "https://img.test/front-white.png", VariantIDs: []int{103}, Position: "front"},
		},
	}
}

func newTestEngine(t *testing.T, provider *fakeProvider) (*Engine, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	engine, err := NewEngine(EngineParams{
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:       dbpkg.NewFromConn(conn),
		Repo:     NewRepository(conn),
		Provider: provider,
	})
	require.NoError(t, err)
	return engine, conn
}

func countRows(t *testing.T, conn *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(model).Count(&n).Error)
	return n
}

func TestSyncCreatesProductsAndEligibleVariants(t *testing.T) {
	provider := newFakeProvider(teeProduct("pfy-1", "Logo Tee"))
	engine, conn := newTestEngine(t, provider)

	result, err := engine.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.SyncedCount)
	assert.Empty(t, result.Failed)

	var product models.Product
	require.NoError(t, conn.Preload("Variants").Where("external_id = ?", "pfy-1").First(&product).Error)
	assert.Equal(t, "logo-tee", product.Slug)
	assert.Equal(t, int64(2500), product.Price)
	assert.Equal(t, "https://img.test/front-black.png", product.Thumbnail)
	assert.True(t, product.Active)
	assert.False(t, product.Featured)
	assert.Equal(t, enums.PublishStatePublished, product.PublishState)
	require.Len(t, product.Variants, 3)

	byExt := map[string]models.Variant{}
	for _, v := range product.Variants {
		byExt[v.ExternalVariantID] = v
	}
	assert.Equal(t, "M", byExt["103"].Size)
	assert.Equal(t, "White", byExt["103"].Color)
	assert.Equal(t, "https://img.test/front-white.png", byExt["103"].ImageURL)
	assert.Equal(t, "pfy-1-101", byExt["101"].SKU)
	assert.Equal(t, 100, byExt["101"].Stock)
	assert.NotContains(t, byExt, "104")
}

func TestSyncTwiceIsNoOpOnCounts(t *testing.T) {
	provider := newFakeProvider(teeProduct("pfy-1", "Logo Tee"), teeProduct("pfy-2", "Other Tee"))
	provider.products["pfy-2"].Variants[0].ID = 201
	provider.products["pfy-2"].Variants[1].ID = 202
	provider.products["pfy-2"].Variants[2].ID = 203
	provider.products["pfy-2"].Variants[3].ID = 204
	engine, conn := newTestEngine(t, provider)

	first, err := engine.Sync(context.Background())
	require.NoError(t, err)
	products := countRows(t, conn, &models.Product{})
	variantRows := countRows(t, conn, &models.Variant{})

	second, err := engine.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.SyncedCount, second.SyncedCount)
	assert.ElementsMatch(t, first.SyncedProductIDs, second.SyncedProductIDs)
	assert.Equal(t, products, countRows(t, conn, &models.Product{}))
	assert.Equal(t, variantRows, countRows(t, conn, &models.Variant{}))
	assert.Equal(t, int64(2), products)
	assert.Equal(t, int64(6), variantRows)
}

func TestSyncPrunesOnlyDisappearedVariant(t *testing.T) {
	provider := newFakeProvider(teeProduct("pfy-1", "Logo Tee"))
	engine, conn := newTestEngine(t, provider)

	_, err := engine.Sync(context.Background())
	require.NoError(t, err)

	var before models.Variant
	require.NoError(t, conn.Where("external_variant_id = ?", "101").First(&before).Error)

	provider.products["pfy-1"].Variants = provider.products["pfy-1"].Variants[1:]
	_, err = engine.Sync(context.Background())
	require.NoError(t, err)

	var remaining []models.Variant
	require.NoError(t, conn.Order("external_variant_id").Find(&remaining).Error)
	ids := make([]string, 0, len(remaining))
	for _, v := range remaining {
		ids = append(ids, v.ExternalVariantID)
	}
	assert.Equal(t, []string{"102", "103"}, ids)

	var gone int64
	require.NoError(t, conn.Model(&models.Variant{}).Where("id = ?", before.ID).Count(&gone).Error)
	assert.Zero(t, gone)
}

func TestSyncPreservesLocalOverrides(t *testing.T) {
	provider := newFakeProvider(teeProduct("pfy-1", "Logo Tee"))
	engine, conn := newTestEngine(t, provider)

	_, err := engine.Sync(context.Background())
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.Product{}).Where("external_id = ?", "pfy-1").
		Updates(map[string]any{"active": false, "featured": true, "publish_state": enums.PublishStateFailed}).Error)

	provider.products["pfy-1"].Title = "Logo Tee v2"
	_, err = engine.Sync(context.Background())
	require.NoError(t, err)

	var product models.Product
	require.NoError(t, conn.Where("external_id = ?", "pfy-1").First(&product).Error)
	assert.False(t, product.Active)
	assert.True(t, product.Featured)
	assert.Equal(t, enums.PublishStateFailed, product.PublishState)
	assert.Equal(t, "Logo Tee v2", product.Name)
	assert.Equal(t, "logo-tee-v2", product.Slug)
}

func TestSyncRecordsPendingImagesAndSkipped(t *testing.T) {
	noImages := teeProduct("pfy-img", "No Images")
	noImages.Images = nil
	unavailable := teeProduct("pfy-off", "Sold Out")
	unavailable.Variants[0].ID, unavailable.Variants[1].ID, unavailable.Variants[2].ID, unavailable.Variants[3].ID = 301, 302, 303, 304
	for i := range unavailable.Variants {
		unavailable.Variants[i].IsAvailable = false
	}
	provider := newFakeProvider(noImages, unavailable)
	engine, conn := newTestEngine(t, provider)

	result, err := engine.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.SyncedCount)
	assert.Equal(t, []string{"pfy-img"}, result.PendingImageProductIDs)
	assert.Equal(t, []string{"pfy-off"}, result.Skipped)
	assert.Zero(t, countRows(t, conn, &models.Product{}))
}

func TestSyncContinuesPastFailingProduct(t *testing.T) {
	good := teeProduct("pfy-good", "Good Tee")
	provider := newFakeProvider(teeProduct("pfy-bad", "Bad Tee"), good)
	provider.getErr["pfy-bad"] = &printify.ProviderError{Status: 500, Endpoint: "/products/pfy-bad.json"}
	engine, _ := newTestEngine(t, provider)

	result, err := engine.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.SyncedCount)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "pfy-bad", result.Failed[0].ExternalID)
	assert.Error(t, result.Err())
}

func TestSyncListingFailureAbortsRun(t *testing.T) {
	provider := newFakeProvider()
	provider.listErr = errors.New("provider down")
	engine, _ := newTestEngine(t, provider)

	_, err := engine.Sync(context.Background())
	require.Error(t, err)
}

func TestSyncSuffixesCollidingSlug(t *testing.T) {
	second := teeProduct("abcdef123", "Logo Tee")
	for i := range second.Variants {
		second.Variants[i].ID += 1000
	}
	provider := newFakeProvider(teeProduct("pfy-1", "Logo Tee"), second)
	engine, conn := newTestEngine(t, provider)

	result, err := engine.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.SyncedCount)

	var product models.Product
	require.NoError(t, conn.Where("external_id = ?", "abcdef123").First(&product).Error)
	assert.Equal(t, "logo-tee-abcdef", product.Slug)

	_, err = engine.Sync(context.Background())
	require.NoError(t, err)
	require.NoError(t, conn.Where("external_id = ?", "abcdef123").First(&product).Error)
	assert.Equal(t, "logo-tee-abcdef", product.Slug)
}

func TestSyncSkipsDuplicateCanonicalPair(t *testing.T) {
	product := teeProduct("pfy-1", "Logo Tee")
	product.Variants = append(product.Variants, printify.Variant{
		ID: 105, Price: 2500, Title: "Black / S", IsEnabled: true, IsAvailable: true, Options: []int{1, 10},
	})
	provider := newFakeProvider(product)
	engine, conn := newTestEngine(t, provider)

	_, err := engine.Sync(context.Background())
	require.NoError(t, err)

	var n int64
	require.NoError(t, conn.Model(&models.Variant{}).Where("size = ? AND color = ?", "S", "Black").Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Logo Tee":            "logo-tee",
		"  Hello,  World!! ":  "hello-world",
		"Crème Brûlée Mug":    "cr-me-br-l-e-mug",
		"---":                 "",
		"11oz Mug / Black":    "11oz-mug-black",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}
