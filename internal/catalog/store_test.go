package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumanshinde/Rpos/internal/apperr"
	"github.com/sumanshinde/Rpos/internal/aws/awstest"
	"github.com/sumanshinde/Rpos/internal/uniqueness"
)

func newStore(t *testing.T) (*Store, *awstest.Dynamo) {
	t.Helper()
	db := awstest.NewDynamo()
	db.CreateTable("categories", "category_id")
	db.CreateTable("products", "product_id")
	db.CreateTable("uniques", "unique_key")
	return NewStore(db, "categories", "products", uniqueness.NewStore(db, "uniques")), db
}

func mustCategory(t *testing.T, s *Store, name string) *Category {
	t.Helper()
	c, err := s.CreateCategory(context.Background(), CategoryInput{Name: name})
	require.NoError(t, err)
	return c
}

func mustProduct(t *testing.T, s *Store, name, price, categoryID string, available bool) *Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), ProductInput{
		Name:        name,
		Price:       decimal.RequireFromString(price),
		CategoryID:  categoryID,
		IsAvailable: &available,
	})
	require.NoError(t, err)
	return p
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hot-drinks", Slugify("  Hot Drinks "))
	assert.Equal(t, "rice-noodles", Slugify("Rice & Noodles!"))
	assert.Equal(t, "", Slugify(" -- "))
}

func TestCreateCategoryClaimsSlug(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()

	c := mustCategory(t, s, "Hot Drinks")
	assert.Equal(t, "hot-drinks", c.Slug)
	assert.NotNil(t, db.Item("uniques", uniqueness.Key(uniqueness.Category, "hot-drinks")))

	_, err := s.CreateCategory(ctx, CategoryInput{Name: "Hot drinks!"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, 1, db.Len("categories"))

	_, err = s.CreateCategory(ctx, CategoryInput{Name: " "})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestListCategoriesByName(t *testing.T) {
	s, _ := newStore(t)
	mustCategory(t, s, "Starters")
	mustCategory(t, s, "Desserts")

	list, err := s.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Desserts", list[0].Name)
	assert.Equal(t, "Starters", list[1].Name)
}

func TestCreateProduct(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()
	cat := mustCategory(t, s, "Mains")

	p, err := s.CreateProduct(ctx, ProductInput{Name: " Paneer Tikka ", Price: decimal.RequireFromString("249.50"), CategoryID: cat.ID})
	require.NoError(t, err)
	assert.Equal(t, "Paneer Tikka", p.Name)
	assert.True(t, p.IsAvailable)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("249.5")))
	assert.Equal(t, cat.ID, got.CategoryID)

	_, err = s.CreateProduct(ctx, ProductInput{Name: "Ghost", Price: decimal.NewFromInt(10), CategoryID: "missing"})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Contains(t, ae.Fields, "category")
	assert.Equal(t, 1, db.Len("products"))
}

func TestCreateProductValidation(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.CreateProduct(context.Background(), ProductInput{Price: decimal.RequireFromString("1.999")})

	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Contains(t, ae.Fields, "name")
	assert.Contains(t, ae.Fields, "price")
	assert.Contains(t, ae.Fields, "category")
}

func TestListProductsFilters(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	mains := mustCategory(t, s, "Mains")
	drinks := mustCategory(t, s, "Drinks")
	mustProduct(t, s, "Dal", "120", mains.ID, true)
	mustProduct(t, s, "Biryani", "220", mains.ID, false)
	mustProduct(t, s, "Chai", "30", drinks.ID, true)

	all, err := s.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Biryani", all[0].Name)

	yes := true
	avail, err := s.ListProducts(ctx, ProductFilter{Available: &yes})
	require.NoError(t, err)
	require.Len(t, avail, 2)
	assert.Equal(t, "Chai", avail[0].Name)
	assert.Equal(t, "Dal", avail[1].Name)

	no := false
	out, err := s.ListProducts(ctx, ProductFilter{Available: &no, CategoryID: mains.ID})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Biryani", out[0].Name)
}

func TestUpdateProduct(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	mains := mustCategory(t, s, "Mains")
	drinks := mustCategory(t, s, "Drinks")
	p := mustProduct(t, s, "Lassi", "60", mains.ID, true)

	price := decimal.RequireFromString("65.00")
	off := false
	got, err := s.UpdateProduct(ctx, p.ID, ProductUpdate{Price: &price, CategoryID: &drinks.ID, IsAvailable: &off})
	require.NoError(t, err)
	assert.Equal(t, "Lassi", got.Name)
	assert.Equal(t, drinks.ID, got.CategoryID)
	assert.False(t, got.IsAvailable)

	stored, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, stored.Price.Equal(price))

	missing := "missing"
	_, err = s.UpdateProduct(ctx, p.ID, ProductUpdate{CategoryID: &missing})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	zero := decimal.Zero
	_, err = s.UpdateProduct(ctx, p.ID, ProductUpdate{Price: &zero})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = s.UpdateProduct(ctx, "nope", ProductUpdate{Price: &price})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteProduct(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()
	cat := mustCategory(t, s, "Mains")
	p := mustProduct(t, s, "Dal", "120", cat.ID, true)

	require.NoError(t, s.DeleteProduct(ctx, p.ID))
	assert.Equal(t, 0, db.Len("products"))

	err := s.DeleteProduct(ctx, p.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = s.GetProduct(ctx, p.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
