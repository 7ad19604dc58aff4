package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/aws"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Store encapsulates operations on the users table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName, nowFunc: time.Now}
}

// Create inserts u. Emails are compared case-insensitively. The email lookup and the
// put are not atomic; the id condition only protects against id reuse.
func (s *Store) Create(ctx context.Context, u *User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	existing, err := s.FindByEmail(ctx, u.Email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil {
		return ErrEmailTaken
	}

	now := s.nowFunc().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Role == RoleDeliveryman && u.Status == "" {
		u.Status = StatusFree
	}
	if err := aws.PutItem(ctx, s.client, s.tableName, u, "attribute_not_exists(id)"); err != nil {
		if aws.IsConditionFailed(err) {
			return fmt.Errorf("user id %s already exists: %w", u.ID, err)
		}
		return err
	}
	return nil
}

// Get fetches a user by id.
func (s *Store) Get(ctx context.Context, id string) (*User, error) {
	var u User
	found, err := aws.GetItem(ctx, s.client, s.tableName, aws.StringKey("id", id), &u)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*User, error) {
	var found []User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := aws.QueryEqual(ctx, s.client, s.tableName, EmailIndex, "email", aws.S(email), &found); err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return &found[0], nil
}

// Update applies the non-nil fields of upd and returns the stored user.
func (s *Store) Update(ctx context.Context, id string, upd Update) (*User, error) {
	sets := []string{"updated_at = :ua"}
	names := map[string]string{"#id": "id"}
	values := map[string]types.AttributeValue{
		":ua": aws.S(s.nowFunc().UTC().Format(time.RFC3339Nano)),
	}
	add := func(attr string, v *string) {
		if v == nil {
			return
		}
		alias := "#" + attr
		names[alias] = attr
		sets = append(sets, fmt.Sprintf("%s = :%s", alias, attr))
		values[":"+attr] = aws.S(*v)
	}
	add("name", upd.Name)
	add("phone", upd.Phone)
	add("image", upd.Image)
	add("status", upd.Status)

	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 sdkaws.String(s.tableName),
		Key:                       aws.StringKey("id", id),
		UpdateExpression:          sdkaws.String("SET " + strings.Join(sets, ", ")),
		ConditionExpression:       sdkaws.String("attribute_exists(#id)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if aws.IsConditionFailed(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	var u User
	if err := attributevalue.UnmarshalMap(out.Attributes, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}
