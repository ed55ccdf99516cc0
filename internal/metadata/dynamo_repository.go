package metadata

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	attrObjectKey   = "object_key"
	attrSizeBytes   = "size_bytes"
	attrContentType = "content_type"
	attrUploadedAt  = "uploaded_at"
)

type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoRepository stores records in a DynamoDB table whose partition key is object_key.
type DynamoRepository struct {
	client dynamoAPI
	table  string
}

// NewDynamoRepository builds a DynamoDB-backed table.
func NewDynamoRepository(client dynamoAPI, table string) *DynamoRepository {
	return &DynamoRepository{client: client, table: table}
}

// Name identifies the table in logs.
func (r *DynamoRepository) Name() string {
	return r.table
}

// Put writes the item, replacing any existing item with the same key.
func (r *DynamoRepository) Put(ctx context.Context, rec Record) error {
	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item: map[string]types.AttributeValue{
			attrObjectKey:   &types.AttributeValueMemberS{Value: rec.ObjectKey},
			attrSizeBytes:   &types.AttributeValueMemberN{Value: strconv.FormatFloat(rec.SizeBytes, 'f', -1, 64)},
			attrContentType: &types.AttributeValueMemberS{Value: rec.ContentType},
			attrUploadedAt:  &types.AttributeValueMemberS{Value: rec.UploadedAt},
		},
	})
	if err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Get reads an item by key with strong consistency.
func (r *DynamoRepository) Get(ctx context.Context, key string) (Record, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            keyAttribute(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Record{}, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return Record{}, ErrRecordNotFound
	}
	return decodeItem(out.Item)
}

// ScanPage reads one scan page, resuming after cursor.
func (r *DynamoRepository) ScanPage(ctx context.Context, cursor string, limit int) (Page, error) {
	in := &dynamodb.ScanInput{
		TableName: aws.String(r.table),
	}
	if limit > 0 {
		in.Limit = aws.Int32(scanLimit(limit))
	}
	if cursor != "" {
		in.ExclusiveStartKey = keyAttribute(cursor)
	}

	out, err := r.client.Scan(ctx, in)
	if err != nil {
		return Page{}, fmt.Errorf("scan table: %w", err)
	}

	page := Page{Records: make([]Record, 0, len(out.Items))}
	for _, item := range out.Items {
		rec, err := decodeItem(item)
		if err != nil {
			return Page{}, err
		}
		page.Records = append(page.Records, rec)
	}
	if len(out.LastEvaluatedKey) > 0 {
		next, err := stringAttr(out.LastEvaluatedKey, attrObjectKey)
		if err != nil {
			return Page{}, fmt.Errorf("decode scan cursor: %w", err)
		}
		page.Next = next
	}
	return page, nil
}

// Ping confirms the table exists and is reachable.
func (r *DynamoRepository) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.table)})
	return err
}

// scanLimit clamps a positive page size into DynamoDB's int32 Limit.
func scanLimit(limit int) int32 {
	if limit > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(limit)
}

func keyAttribute(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrObjectKey: &types.AttributeValueMemberS{Value: key},
	}
}

func decodeItem(item map[string]types.AttributeValue) (Record, error) {
	key, err := stringAttr(item, attrObjectKey)
	if err != nil {
		return Record{}, err
	}

	var rec Record
	rec.ObjectKey = key

	size, ok := item[attrSizeBytes].(*types.AttributeValueMemberN)
	if !ok {
		return Record{}, fmt.Errorf("item %q: %s is not a number", key, attrSizeBytes)
	}
	rec.SizeBytes, err = strconv.ParseFloat(size.Value, 64)
	if err != nil {
		return Record{}, fmt.Errorf("item %q: parse %s: %w", key, attrSizeBytes, err)
	}

	// optional attributes tolerate older items
	rec.ContentType, _ = stringAttr(item, attrContentType)
	rec.UploadedAt, _ = stringAttr(item, attrUploadedAt)
	return rec, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) (string, error) {
	v, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("attribute %s missing or not a string", name)
	}
	return v.Value, nil
}
