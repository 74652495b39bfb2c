package convo

import (
	"context"
	"fmt"
	"time"

	"probuy-bot/internal/cache"
)

// BatchBuffer accumulates staff photo uploads per (uploader, shipment code)
// until an explicit finalize or cancel. Backed by a Redis list so appends
// from several messages keep their order.
type BatchBuffer struct {
	redis *cache.Redis
	ttl   time.Duration
}

func NewBatchBuffer(r *cache.Redis, ttl time.Duration) *BatchBuffer {
	return &BatchBuffer{redis: r, ttl: ttl}
}

func (b *BatchBuffer) key(uploaderID int64, shipmentCode string) string {
	return fmt.Sprintf("mediabatch:%d:%s", uploaderID, shipmentCode)
}

// Append adds one photo reference to the batch.
func (b *BatchBuffer) Append(ctx context.Context, uploaderID int64, shipmentCode, photoRef string) error {
	if err := b.redis.ListAppend(ctx, b.key(uploaderID, shipmentCode), photoRef, b.ttl); err != nil {
		return fmt.Errorf("append media batch: %w", err)
	}
	return nil
}

// Len reports how many photos are buffered.
func (b *BatchBuffer) Len(ctx context.Context, uploaderID int64, shipmentCode string) (int, error) {
	refs, err := b.redis.ListRange(ctx, b.key(uploaderID, shipmentCode))
	if err != nil {
		return 0, err
	}
	return len(refs), nil
}

// Drain returns the accumulated references in order and clears the buffer.
func (b *BatchBuffer) Drain(ctx context.Context, uploaderID int64, shipmentCode string) ([]string, error) {
	key := b.key(uploaderID, shipmentCode)
	refs, err := b.redis.ListRange(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("drain media batch: %w", err)
	}
	if err := b.redis.Delete(ctx, key); err != nil {
		return nil, fmt.Errorf("drain media batch: %w", err)
	}
	return refs, nil
}

// Discard drops the buffer without returning it.
func (b *BatchBuffer) Discard(ctx context.Context, uploaderID int64, shipmentCode string) error {
	if err := b.redis.Delete(ctx, b.key(uploaderID, shipmentCode)); err != nil {
		return fmt.Errorf("discard media batch: %w", err)
	}
	return nil
}
