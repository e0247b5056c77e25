package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/sandeepkv93/account-verification-service/internal/config"
	"github.com/sandeepkv93/account-verification-service/internal/observability"
)

// LoadAWSConfig resolves region and credentials from the default chain. A
// configured DynamoDB endpoint means DynamoDB Local, which accepts any static
// credentials.
func LoadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.DynamoDBEndpoint != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("local", "local", "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

func NewDynamoDBClient(awsCfg aws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

type DynamoDBTableAPI interface {
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// EnsureDynamoDBTable creates the accounts table keyed by email with
// on-demand billing. An existing table is left as is.
func EnsureDynamoDBTable(ctx context.Context, client DynamoDBTableAPI, table string) (created bool, err error) {
	start := time.Now()
	_, err = client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("email"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("email"), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			observability.RecordDatabaseStartupEvent(ctx, "create_table", "exists")
			return false, nil
		}
		observability.RecordDatabaseStartupEvent(ctx, "create_table", "error")
		return false, fmt.Errorf("create table %s: %w", table, err)
	}
	observability.RecordDatabaseStartupEvent(ctx, "create_table", "success")
	observability.RecordDatabaseStartupDuration(ctx, "create_table", time.Since(start))
	return true, nil
}

// DynamoDBTableStatus returns the table status, or "" when the table does not exist.
func DynamoDBTableStatus(ctx context.Context, client DynamoDBTableAPI, table string) (string, error) {
	out, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("describe table %s: %w", table, err)
	}
	if out.Table == nil {
		return "", nil
	}
	return string(out.Table.TableStatus), nil
}
