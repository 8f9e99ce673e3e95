package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/merchdrop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
)

func TestQueryDetailOrganizesVariants(t *testing.T) {
	provider := newFakeProvider(teeProduct("pfy-1", "Logo Tee"))
	engine, conn := newTestEngine(t, provider)
	_, err := engine.Sync(context.Background())
	require.NoError(t, err)

	query, err := NewQuery(NewRepository(conn))
	require.NoError(t, err)

	detail, err := query.Detail(context.Background(), "logo-tee")
	require.NoError(t, err)
	assert.Equal(t, "Logo Tee", detail.Name)
	assert.Equal(t, []string{"S", "M"}, detail.Sizes)
	require.Len(t, detail.Colors, 2)
	assert.Equal(t, ColorSwatch{Name: "Black", Hex: "#000000"}, detail.Colors[0])
	require.Len(t, detail.Variants, 3)
	assert.Equal(t, "S", detail.Variants[0].Size)
	assert.Len(t, detail.Images, 2)
}

func TestQueryDetailHidesInactiveProducts(t *testing.T) {
	provider := newFakeProvider(teeProduct("pfy-1", "Logo Tee"))
	engine, conn := newTestEngine(t, provider)
	_, err := engine.Sync(context.Background())
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.Product{}).Where("slug = ?", "logo-tee").Update("active", false).Error)

	query, err := NewQuery(NewRepository(conn))
	require.NoError(t, err)

	_, err = query.Detail(context.Background(), "logo-tee")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	list, err := query.List(context.Background(), ListInput{})
	require.NoError(t, err)
	assert.Empty(t, list.Products)
}

func TestQueryListPagesWithCursor(t *testing.T) {
	first := teeProduct("pfy-1", "Logo Tee")
	second := teeProduct("pfy-2", "Other Tee")
	for i := range second.Variants {
		second.Variants[i].ID += 1000
	}
	provider := newFakeProvider(first, second)
	engine, conn := newTestEngine(t, provider)
	_, err := engine.Sync(context.Background())
	require.NoError(t, err)

	query, err := NewQuery(NewRepository(conn))
	require.NoError(t, err)

	page, err := query.List(context.Background(), ListInput{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.NotEmpty(t, page.NextCursor)

	_, err = query.List(context.Background(), ListInput{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
