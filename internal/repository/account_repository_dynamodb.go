package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/samber/oops"

	"github.com/sandeepkv93/account-verification-service/internal/domain"
)

// idGuardPrefix marks the items that reserve account ids. The prefix cannot
// appear in a valid email because it has no "@".
const idGuardPrefix = "ID#"

// DynamoDBAPI is the subset of the DynamoDB client the account store uses.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

type DynamoAccountRepository struct {
	client DynamoDBAPI
	table  string
}

func NewDynamoAccountRepository(client DynamoDBAPI, table string) *DynamoAccountRepository {
	if table == "" {
		table = "Users"
	}
	return &DynamoAccountRepository{client: client, table: table}
}

func (r *DynamoAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	item, err := attributevalue.MarshalMap(account)
	if err != nil {
		return oops.Code(storeFailedCode).With("operation", "marshal").Wrap(err)
	}
	guard := map[string]types.AttributeValue{
		"email": &types.AttributeValueMemberS{Value: idGuardPrefix + account.ID},
		"owner": &types.AttributeValueMemberS{Value: account.Email},
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.table),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(email)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.table),
				Item:                guard,
				ConditionExpression: aws.String("attribute_not_exists(email)"),
			}},
		},
	})
	if err != nil {
		if isDynamoConditionFailure(err) {
			return ErrConditionFailed
		}
		return oops.Code(storeFailedCode).With("operation", "create").Wrap(err)
	}
	return nil
}

func (r *DynamoAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            dynamoKey(email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, oops.Code(storeFailedCode).With("operation", "find_by_email").Wrap(err)
	}
	if len(out.Item) == 0 {
		return nil, ErrAccountNotFound
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, oops.Code(storeFailedCode).With("operation", "unmarshal").Wrap(err)
	}
	return &a, nil
}

func (r *DynamoAccountRepository) UpdateIf(ctx context.Context, email string, patch AccountPatch, cond AccountCondition) error {
	in, err := r.updateInput(email, patch, cond)
	if err != nil {
		return oops.Code(storeFailedCode).With("operation", "marshal").Wrap(err)
	}
	if _, err := r.client.UpdateItem(ctx, in); err != nil {
		if isDynamoConditionFailure(err) {
			return ErrConditionFailed
		}
		return oops.Code(storeFailedCode).With("operation", "update_if").Wrap(err)
	}
	return nil
}

func (r *DynamoAccountRepository) Update(ctx context.Context, email string, patch AccountPatch) error {
	in, err := r.updateInput(email, patch, AccountCondition{})
	if err != nil {
		return oops.Code(storeFailedCode).With("operation", "marshal").Wrap(err)
	}
	if _, err := r.client.UpdateItem(ctx, in); err != nil {
		if isDynamoConditionFailure(err) {
			return ErrAccountNotFound
		}
		return oops.Code(storeFailedCode).With("operation", "update").Wrap(err)
	}
	return nil
}

func (r *DynamoAccountRepository) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.table)})
	return err
}

func (r *DynamoAccountRepository) updateInput(email string, patch AccountPatch, cond AccountCondition) (*dynamodb.UpdateItemInput, error) {
	now := patch.timestamp()
	values := map[string]any{":updatedAt": now}
	sets := []string{"updatedAt = :updatedAt"}
	var removes []string

	if patch.PasswordHash != nil {
		sets = append(sets, "passwordHash = :passwordHash")
		values[":passwordHash"] = *patch.PasswordHash
	}
	if patch.MarkEmailVerified {
		sets = append(sets, "isEmailVerified = :verified", "emailVerifiedAt = :verifiedAt")
		values[":verified"] = true
		values[":verifiedAt"] = now
		removes = append(removes, "registrationToken", "verificationCode", "verificationCodeExpiry")
	} else {
		if patch.VerificationCode != nil {
			sets = append(sets, "verificationCode = :code")
			values[":code"] = *patch.VerificationCode
		}
		if patch.VerificationCodeExpiry != nil {
			sets = append(sets, "verificationCodeExpiry = :expiry")
			values[":expiry"] = patch.VerificationCodeExpiry.UTC()
		}
	}

	conds := []string{"attribute_exists(email)"}
	if cond.Unverified {
		conds = append(conds, "isEmailVerified = :unverified")
		values[":unverified"] = false
	}
	if cond.RegistrationToken != nil {
		conds = append(conds, "registrationToken = :condToken")
		values[":condToken"] = *cond.RegistrationToken
	}
	if cond.VerificationCode != nil {
		conds = append(conds, "verificationCode = :condCode")
		values[":condCode"] = *cond.VerificationCode
	}

	expr := "SET " + strings.Join(sets, ", ")
	if len(removes) > 0 {
		expr += " REMOVE " + strings.Join(removes, ", ")
	}
	av, err := attributevalue.MarshalMap(values)
	if err != nil {
		return nil, err
	}
	return &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       dynamoKey(email),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String(strings.Join(conds, " AND ")),
		ExpressionAttributeValues: av,
	}, nil
}

func dynamoKey(email string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"email": &types.AttributeValueMemberS{Value: email}}
}

func isDynamoConditionFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, reason := range tce.CancellationReasons {
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}
