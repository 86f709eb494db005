package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"catalog-service/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// DynamoCategoryAdapter is a DynamoDB-backed CategoryRepo implementation.
type DynamoCategoryAdapter struct {
	client DynamoAPI
	table  string
}

func NewDynamoCategoryAdapter(client DynamoAPI, table string) *DynamoCategoryAdapter {
	return &DynamoCategoryAdapter{client: client, table: table}
}

type ddbCategory struct {
	CategoryID string  `dynamodbav:"id"`
	Name       string  `dynamodbav:"name"`
	Slug       string  `dynamodbav:"slug"`
	ParentID   *string `dynamodbav:"parent_id,omitempty"`
	Order      int     `dynamodbav:"order"`
	IsActive   bool    `dynamodbav:"is_active"`
	CreatedAt  string  `dynamodbav:"created_at"`
	UpdatedAt  string  `dynamodbav:"updated_at"`
}

func (d *DynamoCategoryAdapter) toModel(dc *ddbCategory) *models.Category {
	cat := &models.Category{
		Name:     dc.Name,
		Slug:     dc.Slug,
		Order:    dc.Order,
		IsActive: dc.IsActive,
	}
	cat.ID, _ = uuid.Parse(dc.CategoryID)
	if dc.ParentID != nil {
		if u, err := uuid.Parse(*dc.ParentID); err == nil {
			cat.ParentID = &u
		}
	}
	if t, err := time.Parse(time.RFC3339, dc.CreatedAt); err == nil {
		cat.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, dc.UpdatedAt); err == nil {
		cat.UpdatedAt = t
	}
	return cat
}

func (d *DynamoCategoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"id": id.String()})
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{TableName: &d.table, Key: key})
	if err != nil {
		return nil, classify("dynamodb GetItem", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var dc ddbCategory
	if err := attributevalue.UnmarshalMap(out.Item, &dc); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return d.toModel(&dc), nil
}

func (d *DynamoCategoryAdapter) FindByName(ctx context.Context, name string) (*models.Category, error) {
	filter := "#n = :name"
	input := &dynamodb.ScanInput{
		TableName:                &d.table,
		FilterExpression:         &filter,
		ExpressionAttributeNames: map[string]string{"#n": "name"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name": &types.AttributeValueMemberS{Value: name},
		},
	}
	cats, err := d.scanAll(ctx, input)
	if err != nil {
		return nil, err
	}
	if len(cats) == 0 {
		return nil, ErrNotFound
	}
	return &cats[0], nil
}

func (d *DynamoCategoryAdapter) FindAll(ctx context.Context) ([]models.Category, error) {
	cats, err := d.scanAll(ctx, &dynamodb.ScanInput{TableName: &d.table})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(cats, func(i, j int) bool {
		if cats[i].Order != cats[j].Order {
			return cats[i].Order < cats[j].Order
		}
		return cats[i].Name < cats[j].Name
	})
	return cats, nil
}

func (d *DynamoCategoryAdapter) scanAll(ctx context.Context, input *dynamodb.ScanInput) ([]models.Category, error) {
	var res []models.Category
	paginator := dynamodb.NewScanPaginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("dynamodb scan", err)
		}
		for _, it := range page.Items {
			var dc ddbCategory
			if err := attributevalue.UnmarshalMap(it, &dc); err != nil {
				return nil, fmt.Errorf("unmarshal item: %w", err)
			}
			res = append(res, *d.toModel(&dc))
		}
	}
	return res, nil
}

var _ CategoryRepo = (*DynamoCategoryAdapter)(nil)
