package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"github.com/yashrajoria/catalog-import/models"
)

// DynamoAPI is the part of *dynamodb.Client the token store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoTokenStore keeps Shopify grants in a table keyed by store_id (string).
type DynamoTokenStore struct {
	client DynamoAPI
	table  string
}

func NewDynamoTokenStore(client DynamoAPI, table string) *DynamoTokenStore {
	return &DynamoTokenStore{client: client, table: table}
}

type ddbConnection struct {
	StoreID     string `dynamodbav:"store_id"`
	ShopDomain  string `dynamodbav:"shop_domain"`
	AccessToken string `dynamodbav:"access_token"`
	Scope       string `dynamodbav:"scope,omitempty"`
	InstalledAt string `dynamodbav:"installed_at"`
	UpdatedAt   string `dynamodbav:"updated_at"`
}

func (s *DynamoTokenStore) GetConnection(ctx context.Context, storeID uuid.UUID) (*models.ShopifyConnection, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"store_id": storeID.String()})
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{TableName: &s.table, Key: key})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var item ddbConnection
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	conn := &models.ShopifyConnection{
		StoreID:     storeID,
		ShopDomain:  item.ShopDomain,
		AccessToken: item.AccessToken,
		Scope:       item.Scope,
	}
	conn.InstalledAt, _ = time.Parse(time.RFC3339, item.InstalledAt)
	conn.UpdatedAt, _ = time.Parse(time.RFC3339, item.UpdatedAt)
	return conn, nil
}

func (s *DynamoTokenStore) SaveConnection(ctx context.Context, conn *models.ShopifyConnection) error {
	now := time.Now().UTC()
	installed := conn.InstalledAt
	if installed.IsZero() {
		installed = now
	}
	item, err := attributevalue.MarshalMap(ddbConnection{
		StoreID:     conn.StoreID.String(),
		ShopDomain:  conn.ShopDomain,
		AccessToken: conn.AccessToken,
		Scope:       conn.Scope,
		InstalledAt: installed.Format(time.RFC3339),
		UpdatedAt:   now.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: &s.table, Item: item}); err != nil {
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}
