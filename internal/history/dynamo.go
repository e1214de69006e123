package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/fieldline/iotops/internal/logging"
)

const tableWaitTimeout = 2 * time.Minute

// DynamoAPI is the slice of DynamoDB the store uses. Satisfied by
// *dynamodb.Client; DescribeTable matches the SDK's waiter interface.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// DynamoStore writes snapshots to a DynamoDB table keyed by record ID.
type DynamoStore struct {
	db    DynamoAPI
	table string
	log   *logging.Logger
}

func NewDynamoStore(db DynamoAPI, table string, log *logging.Logger) *DynamoStore {
	return &DynamoStore{db: db, table: table, log: log.Sub("history")}
}

// Save writes one snapshot. Records without an ID get a fresh one so
// every save lands as a new item.
func (s *DynamoStore) Save(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec = NewRecord(rec.SessionID, rec.Conversation, rec.Feedback)
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal history record: %w", err)
	}
	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put history record: %w", err)
	}
	return nil
}

// EnsureTable creates the history table if it does not exist and waits
// for it to become usable. On-demand billing, id hash key; matches the
// shape the frontend has always written.
func (s *DynamoStore) EnsureTable(ctx context.Context) error {
	_, err := s.db.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("describe table %q: %w", s.table, err)
	}

	s.log.Info().Str("table", s.table).Msg("history table missing, creating")
	_, err = s.db.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(s.table),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
	})
	if err != nil {
		return fmt.Errorf("create table %q: %w", s.table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(s.db)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	}, tableWaitTimeout); err != nil {
		return fmt.Errorf("wait for table %q: %w", s.table, err)
	}
	return nil
}
