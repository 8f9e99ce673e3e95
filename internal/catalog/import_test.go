package catalog

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/merchdrop-backend/pkg/db"
	"github.com/angelmondragon/merchdrop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/merchdrop-backend/pkg/db/models"
	"github.com/angelmondragon/merchdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
)

type staticSource struct {
	products []ImportProduct
	urls     []string
}

func (s *staticSource) Fetch(_ context.Context, url string) ([]ImportProduct, error) {
	s.urls = append(s.urls, url)
	return s.products, nil
}

func newTestImporter(t *testing.T, source importSource) (*Importer, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	importer, err := NewImporter(ImporterParams{
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:     dbpkg.NewFromConn(conn),
		Repo:   NewRepository(conn),
		Source: source,
	})
	require.NoError(t, err)
	return importer, conn
}

func stickerPack() ImportProduct {
	return ImportProduct{
		Name:      "Sticker Pack",
		Price:     800,
		Thumbnail: "https://img.test/stickers.png",
		Variants: []ImportVariant{
			{Name: "Matte", Size: "Small", Color: "Matte"},
			{Name: "Glossy", Size: "Small", Color: "Glossy", Price: 900, PreviewURL: "https://img.test/glossy.png"},
			{Name: "Matte again", Size: "small", Color: "Matte"},
		},
	}
}

func variantsOf(t *testing.T, conn *gorm.DB, productID any) []models.Variant {
	t.Helper()
	var rows []models.Variant
	require.NoError(t, conn.Where("product_id = ?", productID).Order("color").Find(&rows).Error)
	return rows
}

func TestImportCreatesLocalProduct(t *testing.T) {
	importer, conn := newTestImporter(t, nil)

	result, err := importer.Import(context.Background(), ImportRequest{Products: []ImportProduct{stickerPack()}})
	require.NoError(t, err)
	require.Equal(t, 1, result.Imported)
	require.Empty(t, result.Failed)
	imported := result.Products[0]
	assert.True(t, imported.Local)
	assert.Equal(t, "sticker-pack", imported.Slug)
	assert.Equal(t, 2, imported.Variants)

	var product models.Product
	require.NoError(t, conn.First(&product, "id = ?", imported.ID).Error)
	assert.Nil(t, product.ExternalID)
	assert.True(t, product.Active)
	assert.False(t, product.Featured)
	assert.Equal(t, enums.PublishStatePublished, product.PublishState)

	rows := variantsOf(t, conn, imported.ID)
	require.Len(t, rows, 2)
	glossy, matte := rows[0], rows[1]
	assert.Equal(t, int64(900), glossy.Price)
	assert.Equal(t, "https://img.test/glossy.png", glossy.ImageURL)
	assert.Equal(t, int64(800), matte.Price)
	assert.Equal(t, "https://img.test/stickers.png", matte.ImageURL)
	assert.Equal(t, 100, matte.Stock)
	assert.True(t, matte.Available)
	assert.True(t, strings.HasPrefix(matte.ExternalVariantID, "local:"+imported.ID.String()))
	assert.Equal(t, matte.ExternalVariantID, matte.SKU)
}

func TestImportTwiceUpdatesLocalProduct(t *testing.T) {
	importer, conn := newTestImporter(t, nil)
	ctx := context.Background()

	first, err := importer.Import(ctx, ImportRequest{Products: []ImportProduct{stickerPack()}})
	require.NoError(t, err)

	again := stickerPack()
	again.Price = 1000
	featured := true
	again.Featured = &featured
	second, err := importer.Import(ctx, ImportRequest{Products: []ImportProduct{again}})
	require.NoError(t, err)

	assert.Equal(t, first.Products[0].ID, second.Products[0].ID)
	assert.Equal(t, int64(1), countRows(t, conn, &models.Product{}))
	assert.Equal(t, int64(2), countRows(t, conn, &models.Variant{}))

	var product models.Product
	require.NoError(t, conn.First(&product, "id = ?", first.Products[0].ID).Error)
	assert.Equal(t, int64(1000), product.Price)
	assert.True(t, product.Featured)
}

func TestImportProviderProductKeyedByExternalID(t *testing.T) {
	importer, conn := newTestImporter(t, nil)
	inactive := false
	in := ImportProduct{
		ExternalID:   "pfy-9",
		Name:         "Logo Tee",
		Price:        2500,
		Active:       &inactive,
		PublishState: "Publishing",
		Variants:     []ImportVariant{{ExternalVariantID: "901", Size: "M", Color: "Black", SKU: "TEE-BM"}},
	}

	result, err := importer.Import(context.Background(), ImportRequest{Products: []ImportProduct{in}})
	require.NoError(t, err)
	require.Equal(t, 1, result.Imported)
	assert.False(t, result.Products[0].Local)

	var product models.Product
	require.NoError(t, conn.Where("external_id = ?", "pfy-9").First(&product).Error)
	assert.False(t, product.Active)
	assert.Equal(t, enums.PublishStatePublishing, product.PublishState)

	rows := variantsOf(t, conn, product.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, "901", rows[0].ExternalVariantID)
	assert.Equal(t, "TEE-BM", rows[0].SKU)
}

func TestImportReportsBadProductsAndContinues(t *testing.T) {
	importer, conn := newTestImporter(t, nil)
	products := []ImportProduct{
		{Name: "  "},
		{Name: "Camp Mug", PublishState: "archived"},
		stickerPack(),
	}

	result, err := importer.Import(context.Background(), ImportRequest{Products: products})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	require.Len(t, result.Failed, 2)
	assert.Contains(t, result.Failed[0].Err, "name is required")
	assert.Equal(t, "Camp Mug", result.Failed[1].Name)
	assert.Equal(t, int64(1), countRows(t, conn, &models.Product{}))
}

func TestImportLocalSlugCollidesWithProviderProduct(t *testing.T) {
	importer, conn := newTestImporter(t, nil)
	ctx := context.Background()

	_, err := importer.Import(ctx, ImportRequest{Products: []ImportProduct{{ExternalID: "pfy-1", Name: "Sticker Pack"}}})
	require.NoError(t, err)
	result, err := importer.Import(ctx, ImportRequest{Products: []ImportProduct{stickerPack()}})
	require.NoError(t, err)

	require.Len(t, result.Products, 1)
	local := result.Products[0]
	assert.True(t, local.Local)
	assert.Equal(t, "sticker-pack-"+local.ID.String()[:6], local.Slug)
	assert.Equal(t, int64(2), countRows(t, conn, &models.Product{}))
}

func TestImportFromSourceURL(t *testing.T) {
	source := &staticSource{products: []ImportProduct{stickerPack()}}
	importer, _ := newTestImporter(t, source)

	result, err := importer.Import(context.Background(), ImportRequest{SourceURL: " https://raw.test/products.json "})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, []string{"https://raw.test/products.json"}, source.urls)
}

func TestImportRejectsAmbiguousRequests(t *testing.T) {
	importer, _ := newTestImporter(t, &staticSource{})
	ctx := context.Background()

	_, err := importer.Import(ctx, ImportRequest{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = importer.Import(ctx, ImportRequest{SourceURL: "https://raw.test/p.json", Products: []ImportProduct{stickerPack()}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func fastSource(srv *httptest.Server) *HTTPSource {
	src := NewHTTPSource(srv.Client())
	src.backoff = time.Millisecond
	return src
}

func TestHTTPSourceRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"name":"Sticker Pack","price_cents":800,"variants":[{"size":"Small","color":"Matte"}]}]`))
	}))
	defer srv.Close()

	products, err := fastSource(srv).Fetch(context.Background(), srv.URL+"/products.json")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(800), products[0].Price)
	assert.Equal(t, "Matte", products[0].Variants[0].Color)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestHTTPSourceFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path == "/object.json" {
			_, _ = w.Write([]byte(`{"name":"not an array"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	src := fastSource(srv)
	ctx := context.Background()

	_, err := src.Fetch(ctx, srv.URL+"/missing.json")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeProvider), "got %v", err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	_, err = src.Fetch(ctx, srv.URL+"/object.json")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = src.Fetch(ctx, "ftp://example.test/products.json")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}
