package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsv2dynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsv2types "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	awsv2xray "github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"github.com/aws/aws-xray-sdk-go/xray"
	"practice-governance/internal/domain"
)

// API is the subset of the DynamoDB client used by the repositories.
type API interface {
	PutItem(ctx context.Context, in *awsv2dynamodb.PutItemInput, opts ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *awsv2dynamodb.GetItemInput, opts ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *awsv2dynamodb.QueryInput, opts ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *awsv2dynamodb.TransactWriteItemsInput, opts ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.TransactWriteItemsOutput, error)
}

type Client struct {
	db        API
	tableName string
}

func NewClient(ctx context.Context, region, tableName string) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	awsv2xray.AWSV2Instrumentor(&cfg.APIOptions)
	return &Client{db: awsv2dynamodb.NewFromConfig(cfg), tableName: tableName}, nil
}

// NewClientWithAPI wraps an existing DynamoDB API implementation.
func NewClientWithAPI(db API, tableName string) *Client {
	return &Client{db: db, tableName: tableName}
}

// Single-table layout: a document's snapshot and its audit entries share the
// partition key so one query returns the document's history in order.
func docPK(docID string) string     { return "DOC#" + docID }
func docMetaSK() string             { return "META" }
func auditSK(entryID string) string { return "AUDIT#" + entryID }
func auditGSIPK() string            { return "AUDIT" }

const auditIndex = "GSI1"

func isConditionalCheckFailure(err error) bool {
	var condErr *awsv2types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return true
	}
	var txErr *awsv2types.TransactionCanceledException
	if !errors.As(err, &txErr) {
		return false
	}
	for _, reason := range txErr.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

type documentItem struct {
	ID             string `dynamodbav:"ID"`
	Title          string `dynamodbav:"Title"`
	Classification string `dynamodbav:"Classification"`
	ApprovalStatus string `dynamodbav:"ApprovalStatus"`
	CreatorID      string `dynamodbav:"CreatorID"`
	Version        int    `dynamodbav:"Version"`
	UpdatedAt      string `dynamodbav:"UpdatedAt"`
}

func documentToItem(doc domain.Document) (map[string]awsv2types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(documentItem{
		ID:             doc.ID,
		Title:          doc.Title,
		Classification: doc.Classification,
		ApprovalStatus: string(doc.ApprovalStatus),
		CreatorID:      doc.CreatorID,
		Version:        doc.Version,
		UpdatedAt:      doc.UpdatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	av["PK"] = &awsv2types.AttributeValueMemberS{Value: docPK(doc.ID)}
	av["SK"] = &awsv2types.AttributeValueMemberS{Value: docMetaSK()}
	av["EntityType"] = &awsv2types.AttributeValueMemberS{Value: "DOCUMENT"}
	return av, nil
}

func documentFromItem(item map[string]awsv2types.AttributeValue) (domain.Document, error) {
	var raw documentItem
	if err := attributevalue.UnmarshalMap(item, &raw); err != nil {
		return domain.Document{}, err
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, raw.UpdatedAt)
	if err != nil {
		return domain.Document{}, fmt.Errorf("parse UpdatedAt of document %s: %w", raw.ID, err)
	}
	return domain.Document{
		ID:             raw.ID,
		Title:          raw.Title,
		Classification: raw.Classification,
		ApprovalStatus: domain.ApprovalStatus(raw.ApprovalStatus),
		CreatorID:      raw.CreatorID,
		Version:        raw.Version,
		UpdatedAt:      updatedAt,
	}, nil
}

type DocumentRepository struct{ client *Client }

func NewDocumentRepository(client *Client) *DocumentRepository {
	return &DocumentRepository{client: client}
}

// Create stores a new document together with the audit entry recording its
// creation. Neither item is written unless both are.
func (r *DocumentRepository) Create(ctx context.Context, doc domain.Document, entry domain.AuditLogEntry) error {
	av, err := documentToItem(doc)
	if err != nil {
		return err
	}
	return r.client.writeWithAudit(ctx, "DynamoDB.CreateDocument", &awsv2types.Put{
		TableName:           aws.String(r.client.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	}, entry)
}

func (r *DocumentRepository) GetByID(ctx context.Context, docID string) (domain.Document, error) {
	var out *awsv2dynamodb.GetItemOutput
	err := xray.Capture(ctx, "DynamoDB.GetDocument", func(ctx context.Context) error {
		var e error
		out, e = r.client.db.GetItem(ctx, &awsv2dynamodb.GetItemInput{
			TableName: aws.String(r.client.tableName),
			Key: map[string]awsv2types.AttributeValue{
				"PK": &awsv2types.AttributeValueMemberS{Value: docPK(docID)},
				"SK": &awsv2types.AttributeValueMemberS{Value: docMetaSK()},
			},
			ConsistentRead: aws.Bool(true),
		})
		return e
	})
	if err != nil {
		return domain.Document{}, err
	}
	if out.Item == nil {
		return domain.Document{}, domain.ErrNotFound
	}
	return documentFromItem(out.Item)
}

// Save replaces the snapshot only when the stored Version still equals
// expectedVersion, writing entry in the same transaction.
func (r *DocumentRepository) Save(ctx context.Context, doc domain.Document, expectedVersion int, entry domain.AuditLogEntry) error {
	av, err := documentToItem(doc)
	if err != nil {
		return err
	}
	return r.client.writeWithAudit(ctx, "DynamoDB.SaveDocument", &awsv2types.Put{
		TableName:           aws.String(r.client.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_exists(PK) AND Version = :v"),
		ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
			":v": &awsv2types.AttributeValueMemberN{Value: strconv.Itoa(expectedVersion)},
		},
	}, entry)
}

// writeWithAudit applies the document put and the audit entry put as one
// TransactWriteItems call. A failed condition on either maps to ErrConflict.
func (c *Client) writeWithAudit(ctx context.Context, segment string, doc *awsv2types.Put, entry domain.AuditLogEntry) error {
	if !validEntry(entry) {
		return domain.ErrInvalidInput
	}
	audit, err := auditToItem(entry)
	if err != nil {
		return err
	}
	return xray.Capture(ctx, segment, func(ctx context.Context) error {
		_, err := c.db.TransactWriteItems(ctx, &awsv2dynamodb.TransactWriteItemsInput{
			TransactItems: []awsv2types.TransactWriteItem{
				{Put: doc},
				{Put: &awsv2types.Put{
					TableName:           aws.String(c.tableName),
					Item:                audit,
					ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
				}},
			},
		})
		if isConditionalCheckFailure(err) {
			return domain.ErrConflict
		}
		return err
	})
}

func validEntry(entry domain.AuditLogEntry) bool {
	return entry.ID != "" && entry.DocumentID != "" && entry.ActorID != "" && entry.Action != ""
}

type auditItem struct {
	ID              string  `dynamodbav:"ID"`
	DocumentID      string  `dynamodbav:"DocumentID"`
	Timestamp       string  `dynamodbav:"Timestamp"`
	ActorID         string  `dynamodbav:"ActorID"`
	Role            string  `dynamodbav:"Role"`
	Action          string  `dynamodbav:"Action"`
	ResultingStatus string  `dynamodbav:"ResultingStatus"`
	ApprovalToken   string  `dynamodbav:"ApprovalToken,omitempty"`
	Confidence      float64 `dynamodbav:"Confidence"`
	Outcome         string  `dynamodbav:"Outcome"`
}

func auditToItem(entry domain.AuditLogEntry) (map[string]awsv2types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(auditItem{
		ID:              entry.ID,
		DocumentID:      entry.DocumentID,
		Timestamp:       entry.Timestamp.Format(time.RFC3339Nano),
		ActorID:         entry.ActorID,
		Role:            string(entry.Role),
		Action:          string(entry.Action),
		ResultingStatus: string(entry.ResultingStatus),
		ApprovalToken:   entry.ApprovalToken,
		Confidence:      entry.Confidence,
		Outcome:         entry.Outcome,
	})
	if err != nil {
		return nil, err
	}
	av["PK"] = &awsv2types.AttributeValueMemberS{Value: docPK(entry.DocumentID)}
	av["SK"] = &awsv2types.AttributeValueMemberS{Value: auditSK(entry.ID)}
	av["GSI1PK"] = &awsv2types.AttributeValueMemberS{Value: auditGSIPK()}
	av["GSI1SK"] = &awsv2types.AttributeValueMemberS{Value: entry.ID}
	av["EntityType"] = &awsv2types.AttributeValueMemberS{Value: "AUDIT_ENTRY"}
	return av, nil
}

func auditFromItems(items []map[string]awsv2types.AttributeValue) ([]domain.AuditLogEntry, error) {
	entries := make([]domain.AuditLogEntry, 0, len(items))
	for _, item := range items {
		var raw auditItem
		if err := attributevalue.UnmarshalMap(item, &raw); err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("parse Timestamp of audit entry %s: %w", raw.ID, err)
		}
		entries = append(entries, domain.AuditLogEntry{
			ID:              raw.ID,
			DocumentID:      raw.DocumentID,
			Timestamp:       ts,
			ActorID:         raw.ActorID,
			Role:            domain.Role(raw.Role),
			Action:          domain.WorkflowAction(raw.Action),
			ResultingStatus: domain.ApprovalStatus(raw.ResultingStatus),
			ApprovalToken:   raw.ApprovalToken,
			Confidence:      raw.Confidence,
			Outcome:         raw.Outcome,
		})
	}
	return entries, nil
}

// AuditRepository persists audit entries. Entry IDs are ULIDs, so sort-key
// order is chronological order.
type AuditRepository struct{ client *Client }

func NewAuditRepository(client *Client) *AuditRepository {
	return &AuditRepository{client: client}
}

func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	if !validEntry(entry) {
		return domain.ErrInvalidInput
	}
	av, err := auditToItem(entry)
	if err != nil {
		return err
	}
	return xray.Capture(ctx, "DynamoDB.PutAuditEntry", func(ctx context.Context) error {
		_, err := r.client.db.PutItem(ctx, &awsv2dynamodb.PutItemInput{
			TableName:           aws.String(r.client.tableName),
			Item:                av,
			ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
		})
		if isConditionalCheckFailure(err) {
			return domain.ErrConflict
		}
		return err
	})
}

func (r *AuditRepository) ListByDocument(ctx context.Context, docID string) ([]domain.AuditLogEntry, error) {
	return r.query(ctx, "DynamoDB.QueryDocumentAudit", &awsv2dynamodb.QueryInput{
		TableName:              aws.String(r.client.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
			":pk": &awsv2types.AttributeValueMemberS{Value: docPK(docID)},
			":sk": &awsv2types.AttributeValueMemberS{Value: "AUDIT#"},
		},
		ConsistentRead: aws.Bool(true),
	})
}

func (r *AuditRepository) List(ctx context.Context) ([]domain.AuditLogEntry, error) {
	return r.query(ctx, "DynamoDB.QueryAudit", &awsv2dynamodb.QueryInput{
		TableName:              aws.String(r.client.tableName),
		IndexName:              aws.String(auditIndex),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
			":pk": &awsv2types.AttributeValueMemberS{Value: auditGSIPK()},
		},
	})
}

// query follows LastEvaluatedKey until the result set is exhausted.
func (r *AuditRepository) query(ctx context.Context, segment string, in *awsv2dynamodb.QueryInput) ([]domain.AuditLogEntry, error) {
	var items []map[string]awsv2types.AttributeValue
	err := xray.Capture(ctx, segment, func(ctx context.Context) error {
		for {
			out, err := r.client.db.Query(ctx, in)
			if err != nil {
				return err
			}
			items = append(items, out.Items...)
			if len(out.LastEvaluatedKey) == 0 {
				return nil
			}
			in.ExclusiveStartKey = out.LastEvaluatedKey
		}
	})
	if err != nil {
		return nil, err
	}
	return auditFromItems(items)
}
