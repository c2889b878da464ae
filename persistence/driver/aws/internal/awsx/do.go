package awsx

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Do executes an AWS API request.
//
// dec is a decorator function that mutates the request before it is sent.
func Do[In, Out any](
	ctx context.Context,
	fn func(context.Context, *In, ...func(*dynamodb.Options)) (Out, error),
	dec func(*In) []func(*dynamodb.Options),
	in *In,
	options ...func(*dynamodb.Options),
) (out Out, err error) {
	if dec != nil {
		options = append(options, dec(in)...)
	}

	return fn(ctx, in, options...)
}
