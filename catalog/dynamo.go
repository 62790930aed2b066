package catalog

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

// BatchGetItem accepts at most this many keys per call.
const maxBatchGet = 100

type DynamoStore struct {
	client dynamodbiface.DynamoDBAPI
	table  string
}

// NewDynamoStore connects to a DynamoDB endpoint, typically a local one such
// as http://localhost:8000.
func NewDynamoStore(endpoint, table string) (*DynamoStore, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:   aws.String("localhost"),
		Endpoint: aws.String(endpoint),
	})
	if err != nil {
		return nil, fmt.Errorf("could not create a new DynamoDB session: %w", err)
	}
	return NewDynamoStoreWithClient(dynamodb.New(sess), table), nil
}

func NewDynamoStoreWithClient(client dynamodbiface.DynamoDBAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

func (d *DynamoStore) Put(ctx context.Context, r Record) error {
	item, err := dynamodbattribute.MarshalMap(r)
	if err != nil {
		return fmt.Errorf("marshalling run %s: %w", r.PK, err)
	}
	_, err = d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("error from DynamoDB: %w", err)
	}
	return nil
}

func (d *DynamoStore) Get(ctx context.Context, ids []string) (map[string]Record, error) {
	res := make(map[string]Record)
	for start := 0; start < len(ids); start += maxBatchGet {
		end := start + maxBatchGet
		if end > len(ids) {
			end = len(ids)
		}
		var keys []map[string]*dynamodb.AttributeValue
		for _, id := range ids[start:end] {
			keys = append(keys, map[string]*dynamodb.AttributeValue{
				"PK": {S: aws.String(id)},
			})
		}
		out, err := d.client.BatchGetItemWithContext(ctx, &dynamodb.BatchGetItemInput{
			RequestItems: map[string]*dynamodb.KeysAndAttributes{
				d.table: {Keys: keys},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("error from DynamoDB: %w", err)
		}
		for _, item := range out.Responses[d.table] {
			var r Record
			if err := dynamodbattribute.UnmarshalMap(item, &r); err != nil {
				return nil, fmt.Errorf("unmarshalling run: %w", err)
			}
			res[r.PK] = r
		}
	}
	return res, nil
}
