// Package catalog stores the menu: categories and the products sold under
// them.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/sumanshinde/Rpos/internal/apperr"
	"github.com/sumanshinde/Rpos/internal/aws"
	"github.com/sumanshinde/Rpos/internal/uniqueness"
)

type Store struct {
	client     aws.DynamoDBAPI
	categories string
	products   string
	uniques    *uniqueness.Store
	nowFunc    func() time.Time
}

func NewStore(client aws.DynamoDBAPI, categoriesTable, productsTable string, uniques *uniqueness.Store) *Store {
	return &Store{
		client:     client,
		categories: categoriesTable,
		products:   productsTable,
		uniques:    uniques,
		nowFunc:    time.Now,
	}
}

func categoryKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"category_id": &types.AttributeValueMemberS{Value: id}}
}

func productKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"product_id": &types.AttributeValueMemberS{Value: id}}
}

// Slugify lowercases name and joins its words with hyphens.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

// CreateCategory adds a category. Its slug is claimed in the same
// transaction.
func (s *Store) CreateCategory(ctx context.Context, in CategoryInput) (*Category, error) {
	name := strings.TrimSpace(in.Name)
	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	fields := map[string]string{}
	if name == "" {
		fields["name"] = "A category must have a name"
	}
	if slug == "" && name != "" {
		fields["slug"] = "A category must have a slug"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid category").WithFields(fields)
	}

	c := Category{
		ID:        uuid.NewString(),
		Name:      name,
		Slug:      slug,
		Image:     strings.TrimSpace(in.Image),
		CreatedAt: s.nowFunc().UTC(),
	}
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return nil, fmt.Errorf("marshal category: %w", err)
	}
	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: []types.TransactWriteItem{
		{Put: &types.Put{TableName: &s.categories, Item: item, ConditionExpression: aws.String("attribute_not_exists(category_id)")}},
		s.uniques.PutItem(uniqueness.Key(uniqueness.Category, slug), c.ID),
	}})
	if err != nil {
		if aws.FirstFailedCondition(err) >= 0 {
			return nil, apperr.Conflict("category %s already exists", slug)
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &c, nil
}

// GetCategory returns the category or a NotFound error.
func (s *Store) GetCategory(ctx context.Context, id string) (*Category, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{TableName: &s.categories, Key: categoryKey(id)})
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, apperr.NotFound("no category found with id %s", id)
	}
	var c Category
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal category: %w", err)
	}
	return &c, nil
}

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	var all []Category
	if err := s.scan(ctx, &dyn.ScanInput{TableName: &s.categories}, func(items []map[string]types.AttributeValue) error {
		var page []Category
		if err := attributevalue.UnmarshalListOfMaps(items, &page); err != nil {
			return fmt.Errorf("unmarshal categories: %w", err)
		}
		all = append(all, page...)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("scan categories: %w", err)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

func (s *Store) scan(ctx context.Context, in *dyn.ScanInput, page func([]map[string]types.AttributeValue) error) error {
	for {
		out, err := s.client.Scan(ctx, in)
		if err != nil {
			return err
		}
		if err := page(out.Items); err != nil {
			return err
		}
		if len(out.LastEvaluatedKey) == 0 {
			return nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func validateProduct(p Product) error {
	fields := map[string]string{}
	if p.Name == "" {
		fields["name"] = "A product must have a name"
	}
	if !p.Price.IsPositive() {
		fields["price"] = "Price must be greater than 0"
	} else if p.Price.Exponent() < -2 {
		fields["price"] = "Price has at most 2 decimal places"
	}
	if p.CategoryID == "" {
		fields["category"] = "A product must belong to a category"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid product").WithFields(fields)
	}
	return nil
}

// categoryExists is a transaction item failing unless the category is
// present.
func (s *Store) categoryExists(id string) types.TransactWriteItem {
	return types.TransactWriteItem{ConditionCheck: &types.ConditionCheck{
		TableName:           &s.categories,
		Key:                 categoryKey(id),
		ConditionExpression: aws.String("attribute_exists(category_id)"),
	}}
}

// CreateProduct adds a product under an existing category.
func (s *Store) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	now := s.nowFunc().UTC()
	p := Product{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Price:       aws.NewDecimal(in.Price),
		CategoryID:  strings.TrimSpace(in.CategoryID),
		Image:       strings.TrimSpace(in.Image),
		Description: in.Description,
		IsAvailable: in.IsAvailable == nil || *in.IsAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.putProduct(ctx, p, "attribute_not_exists(product_id)"); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) putProduct(ctx context.Context, p Product, cond string) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: []types.TransactWriteItem{
		{Put: &types.Put{TableName: &s.products, Item: item, ConditionExpression: aws.String(cond)}},
		s.categoryExists(p.CategoryID),
	}})
	if err == nil {
		return nil
	}
	switch aws.FirstFailedCondition(err) {
	case 0:
		return apperr.NotFound("no product found with id %s", p.ID)
	case 1:
		return apperr.Validation("invalid product").WithFields(map[string]string{"category": "No category found with id " + p.CategoryID})
	}
	return fmt.Errorf("put product: %w", err)
}

// GetProduct returns the product or a NotFound error.
func (s *Store) GetProduct(ctx context.Context, id string) (*Product, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{TableName: &s.products, Key: productKey(id)})
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, apperr.NotFound("no product found with id %s", id)
	}
	var p Product
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	return &p, nil
}

// ListProducts returns the products matching f ordered by name.
func (s *Store) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	in := &dyn.ScanInput{TableName: &s.products}
	var (
		conds  []string
		values = map[string]types.AttributeValue{}
	)
	if f.Available != nil {
		conds = append(conds, "is_available = :avail")
		values[":avail"] = &types.AttributeValueMemberBOOL{Value: *f.Available}
	}
	if f.CategoryID != "" {
		conds = append(conds, "category_id = :cat")
		values[":cat"] = &types.AttributeValueMemberS{Value: f.CategoryID}
	}
	if len(conds) > 0 {
		in.FilterExpression = aws.String(strings.Join(conds, " AND "))
		in.ExpressionAttributeValues = values
	}

	var all []Product
	if err := s.scan(ctx, in, func(items []map[string]types.AttributeValue) error {
		var page []Product
		if err := attributevalue.UnmarshalListOfMaps(items, &page); err != nil {
			return fmt.Errorf("unmarshal products: %w", err)
		}
		all = append(all, page...)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

// UpdateProduct applies the non-nil fields of in.
func (s *Store) UpdateProduct(ctx context.Context, id string, in ProductUpdate) (*Product, error) {
	cur, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	next := *cur
	if in.Name != nil {
		next.Name = strings.TrimSpace(*in.Name)
	}
	if in.Price != nil {
		next.Price = aws.NewDecimal(*in.Price)
	}
	if in.CategoryID != nil {
		next.CategoryID = strings.TrimSpace(*in.CategoryID)
	}
	if in.Image != nil {
		next.Image = strings.TrimSpace(*in.Image)
	}
	if in.Description != nil {
		next.Description = *in.Description
	}
	if in.IsAvailable != nil {
		next.IsAvailable = *in.IsAvailable
	}
	if err := validateProduct(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.nowFunc().UTC()
	if err := s.putProduct(ctx, next, "attribute_exists(product_id)"); err != nil {
		return nil, err
	}
	return &next, nil
}

// DeleteProduct removes a product. Orders keep their own snapshot of it.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName:           &s.products,
		Key:                 productKey(id),
		ConditionExpression: aws.String("attribute_exists(product_id)"),
	})
	if err != nil {
		if aws.IsConditionFailed(err) {
			return apperr.NotFound("no product found with id %s", id)
		}
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}
