/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

type retryOptions struct {
	maxRetries   int
	retryBackoff time.Duration
}

func defaultRetryOptions() retryOptions {
	return retryOptions{
		maxRetries:   3,
		retryBackoff: 100 * time.Millisecond,
	}
}

// scanAll reads every page of a scan.
func (d *Adapter) scanAll(ctx context.Context, client Client, input *sdk.ScanInput) ([]map[string]types.AttributeValue, error) {
	var (
		items      []map[string]types.AttributeValue
		pageNumber int
	)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		out, err := d.scanWithRetry(ctx, client, input)
		if err != nil {
			return nil, err
		}
		pageNumber++
		items = append(items, out.Items...)

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	d.logger.Debug("scan complete", zap.Int("pages", pageNumber), zap.Int("items", len(items)))
	return items, nil
}

// scanWithRetry executes one scan page, retrying throttling and server errors with linear backoff.
func (d *Adapter) scanWithRetry(ctx context.Context, client Client, input *sdk.ScanInput) (*sdk.ScanOutput, error) {
	var lastErr error

	for attempt := 0; attempt <= d.retry.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		out, err := client.Scan(ctx, input)
		if err == nil {
			return out, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return nil, err
		}

		// Don't sleep after last attempt
		if attempt < d.retry.maxRetries {
			backoff := time.Duration(attempt+1) * d.retry.retryBackoff
			d.logger.Warn("retrying scan", zap.Int("attempt", attempt+1), zap.Error(err))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("scan failed after %d retries: %w", d.retry.maxRetries, lastErr)
}

// isRetryableError determines if a DynamoDB error is retryable
func isRetryableError(err error) bool {
	var (
		throughput *types.ProvisionedThroughputExceededException
		limit      *types.RequestLimitExceeded
		internal   *types.InternalServerError
	)
	if stderrors.As(err, &throughput) || stderrors.As(err, &limit) || stderrors.As(err, &internal) {
		return true
	}

	var retryable interface{ IsRetryable() bool }
	if stderrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}

	return false
}
