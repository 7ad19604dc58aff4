package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/aws"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrCategoryExists  = errors.New("category already exists")
)

// Store covers the products and categories tables.
type Store struct {
	client          aws.DynamoDBAPI
	productsTable   string
	categoriesTable string
	nowFunc         func() time.Time
}

func NewStore(client aws.DynamoDBAPI, productsTable, categoriesTable string) *Store {
	return &Store{
		client:          client,
		productsTable:   productsTable,
		categoriesTable: categoriesTable,
		nowFunc:         time.Now,
	}
}

func (s *Store) CreateProduct(ctx context.Context, p *Product) error {
	now := s.nowFunc().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	return aws.PutItem(ctx, s.client, s.productsTable, p, "attribute_not_exists(id)")
}

func (s *Store) GetProduct(ctx context.Context, id string) (*Product, error) {
	var p Product
	found, err := aws.GetItem(ctx, s.client, s.productsTable, aws.StringKey("id", id), &p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

// ListProducts returns every product sorted by name, optionally restricted to one
// category (case-insensitive).
func (s *Store) ListProducts(ctx context.Context, category string) ([]Product, error) {
	var all []Product
	if err := aws.ScanAll(ctx, s.client, s.productsTable, &all); err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if category == "" || strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// UpdateProduct applies the non-nil fields of upd.
func (s *Store) UpdateProduct(ctx context.Context, id string, upd ProductUpdate) (*Product, error) {
	sets := []string{"updated_at = :ua"}
	names := map[string]string{"#id": "id"}
	values := map[string]types.AttributeValue{
		":ua": aws.S(s.nowFunc().UTC().Format(time.RFC3339Nano)),
	}
	set := func(attr string, v types.AttributeValue) {
		names["#"+attr] = attr
		sets = append(sets, fmt.Sprintf("#%s = :%s", attr, attr))
		values[":"+attr] = v
	}
	if upd.Name != nil {
		set("name", aws.S(*upd.Name))
	}
	if upd.Price != nil {
		set("price", aws.N(strconv.FormatFloat(*upd.Price, 'f', -1, 64)))
	}
	if upd.Discount != nil {
		set("discount", aws.N(strconv.FormatFloat(*upd.Discount, 'f', -1, 64)))
	}
	if upd.Quantity != nil {
		set("quantity", aws.N(strconv.Itoa(*upd.Quantity)))
	}
	if upd.Category != nil {
		set("category", aws.S(*upd.Category))
	}
	if upd.ImageURL != nil {
		set("image_url", aws.S(*upd.ImageURL))
	}

	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 sdkaws.String(s.productsTable),
		Key:                       aws.StringKey("id", id),
		UpdateExpression:          sdkaws.String("SET " + strings.Join(sets, ", ")),
		ConditionExpression:       sdkaws.String("attribute_exists(#id)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if aws.IsConditionFailed(err) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	var p Product
	if err := attributevalue.UnmarshalMap(out.Attributes, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	return &p, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	if err := aws.DeleteExisting(ctx, s.client, s.productsTable, "id", id); err != nil {
		if aws.IsConditionFailed(err) {
			return ErrProductNotFound
		}
		return err
	}
	return nil
}

// CreateCategory stores c. Category names are unique case-insensitively.
func (s *Store) CreateCategory(ctx context.Context, c *Category) error {
	existing, err := s.ListCategories(ctx)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if strings.EqualFold(e.CategoryName, c.CategoryName) {
			return ErrCategoryExists
		}
	}
	return aws.PutItem(ctx, s.client, s.categoriesTable, c, "attribute_not_exists(id)")
}

func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := aws.ScanAll(ctx, s.client, s.categoriesTable, &out); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryName < out[j].CategoryName })
	return out, nil
}
