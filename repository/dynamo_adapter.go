package repository

import (
	"context"
	"fmt"
	"time"

	"catalog-service/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// DynamoAPI is the subset of the DynamoDB client used by the adapters.
type DynamoAPI interface {
	dynamodb.ScanAPIClient
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoAdapter is a DynamoDB-backed ProductRepo. Items are keyed by `product_id`
// and carry their gallery inline.
type DynamoAdapter struct {
	client DynamoAPI
	table  string
}

func NewDynamoAdapter(client DynamoAPI, table string) *DynamoAdapter {
	return &DynamoAdapter{client: client, table: table}
}

type ddbImage struct {
	ImageID string `dynamodbav:"image_id"`
	Image   string `dynamodbav:"image"`
	Alt     string `dynamodbav:"alt,omitempty"`
	Order   int    `dynamodbav:"order"`
}

type ddbProduct struct {
	ProductID    string            `dynamodbav:"product_id"`
	Title        string            `dynamodbav:"title"`
	Article      string            `dynamodbav:"article,omitempty"`
	Slug         string            `dynamodbav:"slug"`
	CategoryID   string            `dynamodbav:"category_id"`
	Description  string            `dynamodbav:"description,omitempty"`
	Details      map[string]string `dynamodbav:"details,omitempty"`
	Availability string            `dynamodbav:"availability"`
	IsActive     bool              `dynamodbav:"is_active"`
	PreviewImage string            `dynamodbav:"preview_image,omitempty"`
	Images       []ddbImage        `dynamodbav:"images"`
	CreatedAt    string            `dynamodbav:"created_at"`
	UpdatedAt    string            `dynamodbav:"updated_at"`
}

func (d *DynamoAdapter) toModel(dp *ddbProduct) *models.Product {
	p := &models.Product{
		Title:        dp.Title,
		Article:      dp.Article,
		Slug:         dp.Slug,
		Description:  dp.Description,
		Details:      models.DetailsFromMap(dp.Details),
		Availability: models.Availability(dp.Availability),
		IsActive:     dp.IsActive,
		PreviewImage: dp.PreviewImage,
	}
	p.ID, _ = uuid.Parse(dp.ProductID)
	p.CategoryID, _ = uuid.Parse(dp.CategoryID)
	for _, img := range dp.Images {
		mi := models.ProductImage{ProductID: p.ID, Image: img.Image, Alt: img.Alt, Order: img.Order}
		mi.ID, _ = uuid.Parse(img.ImageID)
		p.Images = append(p.Images, mi)
	}
	if t, err := time.Parse(time.RFC3339, dp.CreatedAt); err == nil {
		p.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, dp.UpdatedAt); err == nil {
		p.UpdatedAt = t
	}
	return p
}

func (d *DynamoAdapter) key(id uuid.UUID) (map[string]types.AttributeValue, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"product_id": id.String()})
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	return key, nil
}

func (d *DynamoAdapter) Ping(ctx context.Context) error {
	if _, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: &d.table}); err != nil {
		return fmt.Errorf("describe table %s: %w: %v", d.table, ErrStoreUnavailable, err)
	}
	return nil
}

// scan runs a filtered Scan across all pages.
func (d *DynamoAdapter) scan(ctx context.Context, filter string, values map[string]types.AttributeValue) ([]*models.Product, error) {
	input := &dynamodb.ScanInput{
		TableName:                 &d.table,
		FilterExpression:          &filter,
		ExpressionAttributeValues: values,
	}
	var res []*models.Product
	paginator := dynamodb.NewScanPaginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("dynamodb scan", err)
		}
		for _, it := range page.Items {
			var dp ddbProduct
			if err := attributevalue.UnmarshalMap(it, &dp); err != nil {
				return nil, fmt.Errorf("unmarshal item: %w", err)
			}
			res = append(res, d.toModel(&dp))
		}
	}
	return res, nil
}

func (d *DynamoAdapter) FindByTitle(ctx context.Context, title string) (*models.Product, error) {
	found, err := d.scan(ctx, "title = :t", map[string]types.AttributeValue{
		":t": &types.AttributeValueMemberS{Value: title},
	})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return found[0], nil
}

func (d *DynamoAdapter) SlugExists(ctx context.Context, slug string) (bool, error) {
	found, err := d.scan(ctx, "slug = :s", map[string]types.AttributeValue{
		":s": &types.AttributeValueMemberS{Value: slug},
	})
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

func (d *DynamoAdapter) Create(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	now := time.Now().UTC()
	product.CreatedAt, product.UpdatedAt = now, now

	dp := ddbProduct{
		ProductID:    product.ID.String(),
		Title:        product.Title,
		Article:      product.Article,
		Slug:         product.Slug,
		CategoryID:   product.CategoryID.String(),
		Description:  product.Description,
		Details:      detailsToStrings(product),
		Availability: string(product.Availability),
		IsActive:     product.IsActive,
		PreviewImage: product.PreviewImage,
		Images:       []ddbImage{},
		CreatedAt:    now.Format(time.RFC3339),
		UpdatedAt:    now.Format(time.RFC3339),
	}
	item, err := attributevalue.MarshalMap(dp)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	cond := "attribute_not_exists(product_id)"
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: &d.table, Item: item, ConditionExpression: &cond})
	if err != nil {
		return classify("dynamodb PutItem", err)
	}
	return nil
}

func (d *DynamoAdapter) Update(ctx context.Context, product *models.Product) error {
	key, err := d.key(product.ID)
	if err != nil {
		return err
	}
	values, err := attributevalue.MarshalMap(map[string]interface{}{
		":article":      product.Article,
		":description":  product.Description,
		":details":      detailsToStrings(product),
		":category":     product.CategoryID.String(),
		":availability": string(product.Availability),
		":active":       product.IsActive,
		":updated":      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal update values: %w", err)
	}
	expr := "SET article = :article, description = :description, details = :details, " +
		"category_id = :category, availability = :availability, is_active = :active, updated_at = :updated"
	_, err = d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 &d.table,
		Key:                       key,
		UpdateExpression:          &expr,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return classify("dynamodb UpdateItem", err)
	}
	return nil
}

func (d *DynamoAdapter) ClearImages(ctx context.Context, productID uuid.UUID) error {
	key, err := d.key(productID)
	if err != nil {
		return err
	}
	expr := "SET images = :empty, preview_image = :none"
	_, err = d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        &d.table,
		Key:              key,
		UpdateExpression: &expr,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":none":  &types.AttributeValueMemberS{Value: ""},
		},
	})
	if err != nil {
		return classify("dynamodb UpdateItem", err)
	}
	return nil
}

func (d *DynamoAdapter) AddImage(ctx context.Context, image *models.ProductImage) error {
	if image.ID == uuid.Nil {
		image.ID = uuid.New()
	}
	key, err := d.key(image.ProductID)
	if err != nil {
		return err
	}
	av, err := attributevalue.Marshal([]ddbImage{{
		ImageID: image.ID.String(),
		Image:   image.Image,
		Alt:     image.Alt,
		Order:   image.Order,
	}})
	if err != nil {
		return fmt.Errorf("marshal image: %w", err)
	}
	expr := "SET images = list_append(if_not_exists(images, :empty), :img)"
	_, err = d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        &d.table,
		Key:              key,
		UpdateExpression: &expr,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":img":   av,
		},
	})
	if err != nil {
		return classify("dynamodb UpdateItem", err)
	}
	return nil
}

func (d *DynamoAdapter) SetPreviewImage(ctx context.Context, productID uuid.UUID, url string) error {
	key, err := d.key(productID)
	if err != nil {
		return err
	}
	expr := "SET preview_image = :url"
	_, err = d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        &d.table,
		Key:              key,
		UpdateExpression: &expr,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":url": &types.AttributeValueMemberS{Value: url},
		},
	})
	if err != nil {
		return classify("dynamodb UpdateItem", err)
	}
	return nil
}

func (d *DynamoAdapter) FindByCategory(ctx context.Context, categoryID uuid.UUID) ([]models.Product, error) {
	found, err := d.scan(ctx, "category_id = :c", map[string]types.AttributeValue{
		":c": &types.AttributeValueMemberS{Value: categoryID.String()},
	})
	if err != nil {
		return nil, err
	}
	res := make([]models.Product, 0, len(found))
	for _, p := range found {
		res = append(res, *p)
	}
	return res, nil
}

// DeleteMany uses BatchWriteItem (chunks of 25)
func (d *DynamoAdapter) DeleteMany(ctx context.Context, ids []uuid.UUID) error {
	const chunkSize = 25
	for i := 0; i < len(ids); i += chunkSize {
		end := i + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		writeReqs := make([]types.WriteRequest, 0, end-i)
		for _, id := range ids[i:end] {
			key, err := d.key(id)
			if err != nil {
				return err
			}
			writeReqs = append(writeReqs, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}})
		}
		req := &dynamodb.BatchWriteItemInput{RequestItems: map[string][]types.WriteRequest{d.table: writeReqs}}
		attempts := 0
		for {
			out, err := d.client.BatchWriteItem(ctx, req)
			if err != nil {
				return classify("dynamodb BatchWriteItem", err)
			}
			unp, ok := out.UnprocessedItems[d.table]
			if !ok || len(unp) == 0 {
				break
			}
			req.RequestItems[d.table] = unp
			attempts++
			if attempts >= 3 {
				return fmt.Errorf("batch delete had unprocessed items after retries")
			}
			if err := waitRetry(ctx, time.Duration(attempts*300)*time.Millisecond); err != nil {
				return fmt.Errorf("batch delete retry: %w", err)
			}
		}
	}
	return nil
}

// waitRetry sleeps for d unless ctx ends first.
func waitRetry(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func detailsToStrings(p *models.Product) map[string]string {
	out := make(map[string]string, len(p.Details))
	for k, v := range p.Details {
		out[k] = fmt.Sprint(v)
	}
	return out
}

var _ ProductRepo = (*DynamoAdapter)(nil)
