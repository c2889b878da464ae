// Package dynamodb provides an implementation of the event-stream contract
// that persists records in a DynamoDB table.
package dynamodb

import (
	"context"
	"errors"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/registrarkit/enroll/persistence/driver/aws/internal/awsx"
	"github.com/registrarkit/enroll/persistence/eventstream"
)

const (
	streamAttr  = "StreamID"
	versionAttr = "Version"
	recordAttr  = "Record"
)

// StreamStore is an implementation of [eventstream.Store] that persists
// records in a DynamoDB table.
//
// Optimistic concurrency control is enforced by the store itself: every
// record is written with a condition that its (stream, version) key does not
// already exist, and multi-record batches are written in a single
// transaction.
type StreamStore struct {
	// Client is the DynamoDB client to use.
	Client *dynamodb.Client

	// Table is the table name used for storage of stream records.
	Table string

	// DecorateQuery is an optional function that is called before each
	// DynamoDB "Query" request.
	//
	// It may modify the API input in-place. It returns options that will be
	// applied to the request.
	DecorateQuery func(*dynamodb.QueryInput) []func(*dynamodb.Options)

	// DecoratePutItem is an optional function that is called before each
	// DynamoDB "PutItem" request.
	//
	// It may modify the API input in-place. It returns options that will be
	// applied to the request.
	DecoratePutItem func(*dynamodb.PutItemInput) []func(*dynamodb.Options)

	// DecorateTransactWriteItems is an optional function that is called
	// before each DynamoDB "TransactWriteItems" request.
	//
	// It may modify the API input in-place. It returns options that will be
	// applied to the request.
	DecorateTransactWriteItems func(*dynamodb.TransactWriteItemsInput) []func(*dynamodb.Options)
}

// Append implements [eventstream.Store].
func (s *StreamStore) Append(
	ctx context.Context,
	streamID string,
	records [][]byte,
	expectedVersion uint64,
) error {
	if len(records) == 0 {
		return nil
	}

	var err error
	if len(records) == 1 && expectedVersion == 0 {
		err = s.putFirst(ctx, streamID, records[0])
	} else {
		err = s.putTransactionally(ctx, streamID, records, expectedVersion)
	}

	if isConditionFailure(err) {
		actual, verr := s.CurrentVersion(ctx, streamID)
		if verr != nil {
			return verr
		}

		return &eventstream.ConflictError{
			StreamID: streamID,
			Expected: expectedVersion,
			Actual:   actual,
		}
	}

	return err
}

// putFirst writes the first record of a stream with a plain conditional put.
func (s *StreamStore) putFirst(ctx context.Context, streamID string, rec []byte) error {
	_, err := awsx.Do(
		ctx,
		s.Client.PutItem,
		s.DecoratePutItem,
		&dynamodb.PutItemInput{
			TableName:           aws.String(s.Table),
			ConditionExpression: aws.String(`attribute_not_exists(#S)`),
			ExpressionAttributeNames: map[string]string{
				"#S": streamAttr,
			},
			Item: item(streamID, 1, rec),
		},
	)

	return err
}

// putTransactionally writes a batch of records in a single transaction so
// that the append is all-or-nothing.
//
// Each put is conditional on its version being unclaimed. When the expected
// version is non-zero the transaction additionally asserts that the record at
// that version exists, which prevents an append from leaving a gap.
func (s *StreamStore) putTransactionally(
	ctx context.Context,
	streamID string,
	records [][]byte,
	expectedVersion uint64,
) error {
	var items []types.TransactWriteItem

	if expectedVersion != 0 {
		items = append(items, types.TransactWriteItem{
			ConditionCheck: &types.ConditionCheck{
				TableName:           aws.String(s.Table),
				ConditionExpression: aws.String(`attribute_exists(#S)`),
				ExpressionAttributeNames: map[string]string{
					"#S": streamAttr,
				},
				Key: key(streamID, expectedVersion),
			},
		})
	}

	for i, rec := range records {
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(s.Table),
				ConditionExpression: aws.String(`attribute_not_exists(#S)`),
				ExpressionAttributeNames: map[string]string{
					"#S": streamAttr,
				},
				Item: item(streamID, expectedVersion+uint64(i)+1, rec),
			},
		})
	}

	_, err := awsx.Do(
		ctx,
		s.Client.TransactWriteItems,
		s.DecorateTransactWriteItems,
		&dynamodb.TransactWriteItemsInput{
			TransactItems: items,
		},
	)

	return err
}

// Read implements [eventstream.Store].
func (s *StreamStore) Read(
	ctx context.Context,
	streamID string,
	fromVersion uint64,
) ([]eventstream.Record, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.Table),
		KeyConditionExpression: aws.String(`#S = :S AND #V >= :V`),
		ExpressionAttributeNames: map[string]string{
			"#S": streamAttr,
			"#V": versionAttr,
			"#R": recordAttr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":S": &types.AttributeValueMemberS{Value: streamID},
			":V": &types.AttributeValueMemberN{Value: strconv.FormatUint(fromVersion, 10)},
		},
		ProjectionExpression: aws.String(`#V, #R`),
	}

	var records []eventstream.Record

	for {
		out, err := awsx.Do(
			ctx,
			s.Client.Query,
			s.DecorateQuery,
			in,
		)
		if err != nil {
			return nil, err
		}

		for _, it := range out.Items {
			rec, err := recordFromItem(it)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}

		if out.LastEvaluatedKey == nil {
			return records, nil
		}

		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// CurrentVersion implements [eventstream.Store].
func (s *StreamStore) CurrentVersion(ctx context.Context, streamID string) (uint64, error) {
	out, err := awsx.Do(
		ctx,
		s.Client.Query,
		s.DecorateQuery,
		&dynamodb.QueryInput{
			TableName:              aws.String(s.Table),
			KeyConditionExpression: aws.String(`#S = :S`),
			ExpressionAttributeNames: map[string]string{
				"#S": streamAttr,
				"#V": versionAttr,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":S": &types.AttributeValueMemberS{Value: streamID},
			},
			ProjectionExpression: aws.String(`#V`),
			ScanIndexForward:     aws.Bool(false),
			Limit:                aws.Int32(1),
		},
	)
	if err != nil {
		return 0, err
	}

	if len(out.Items) == 0 {
		return 0, nil
	}

	v, err := getAttr[*types.AttributeValueMemberN](out.Items[0], versionAttr)
	if err != nil {
		return 0, err
	}

	return strconv.ParseUint(v.Value, 10, 64)
}

// Exists implements [eventstream.Store].
func (s *StreamStore) Exists(ctx context.Context, streamID string) (bool, error) {
	ver, err := s.CurrentVersion(ctx, streamID)
	return ver > 0, err
}

func key(streamID string, version uint64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		streamAttr:  &types.AttributeValueMemberS{Value: streamID},
		versionAttr: &types.AttributeValueMemberN{Value: strconv.FormatUint(version, 10)},
	}
}

func item(streamID string, version uint64, rec []byte) map[string]types.AttributeValue {
	m := key(streamID, version)
	m[recordAttr] = &types.AttributeValueMemberB{Value: rec}

	return m
}

func recordFromItem(it map[string]types.AttributeValue) (eventstream.Record, error) {
	v, err := getAttr[*types.AttributeValueMemberN](it, versionAttr)
	if err != nil {
		return eventstream.Record{}, err
	}

	ver, err := strconv.ParseUint(v.Value, 10, 64)
	if err != nil {
		return eventstream.Record{}, err
	}

	r, err := getAttr[*types.AttributeValueMemberB](it, recordAttr)
	if err != nil {
		return eventstream.Record{}, err
	}

	return eventstream.Record{
		Version: ver,
		Data:    r.Value,
	}, nil
}

// isConditionFailure reports whether err indicates that a conditional write
// was rejected, either directly or as the cancellation of a transaction.
func isConditionFailure(err error) bool {
	var check *types.ConditionalCheckFailedException
	if errors.As(err, &check) {
		return true
	}

	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return true
			}
		}
	}

	return false
}
