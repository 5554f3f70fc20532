package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Redis backs the three front-of-door concerns of the enrollment flow:
// single-use form tokens, a short serialization lock per course date, and
// idempotency keys for payment webhook deliveries.
type Redis struct {
	Client       *redis.Client
	Logger       *log.Logger
	FormTokenTTL time.Duration
	DateLockTTL  time.Duration
}

func NewRedis(client *redis.Client, formTokenTTL, dateLockTTL time.Duration) *Redis {
	return &Redis{
		Client:       client,
		Logger:       log.Default(),
		FormTokenTTL: formTokenTTL,
		DateLockTTL:  dateLockTTL,
	}
}

// IssueFormToken creates a single-use security token bound to a course.
func (r *Redis) IssueFormToken(courseID string) (string, error) {
	token := uuid.NewString()
	key := "form_token:" + token
	err := r.Client.Set(context.Background(), key, courseID, r.FormTokenTTL).Err()
	if err != nil {
		return "", err
	}
	return token, nil
}

// ConsumeFormToken checks a token against its course and deletes it.
// A missing, expired, or foreign token returns false.
func (r *Redis) ConsumeFormToken(token, courseID string) (bool, error) {
	ctx := context.Background()
	key := "form_token:" + token
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if val != courseID {
		return false, nil
	}
	_, err = r.Client.Del(ctx, key).Result()
	return true, err
}

// LockDate takes a short lock on a course date to serialize concurrent
// submissions. The database transaction remains the authority on
// capacity; this only smooths the front door.
func (r *Redis) LockDate(dateID, holderID string) (bool, error) {
	key := "date_lock:" + dateID
	ok, err := r.Client.SetNX(context.Background(), key, holderID, r.DateLockTTL).Result()
	return ok, err
}

// UnlockDate releases a date lock, but only for its holder.
func (r *Redis) UnlockDate(dateID, holderID string) error {
	ctx := context.Background()
	key := fmt.Sprintf("date_lock:%s", dateID)
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already released or expired
	}
	if err != nil {
		return err
	}
	if val == holderID {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}

// MarkOrderProcessed records that a paid order has been completed.
// Returns false when the order was already processed, making duplicate
// webhook deliveries a no-op.
func (r *Redis) MarkOrderProcessed(orderID string) (bool, error) {
	key := "order_processed:" + orderID
	ok, err := r.Client.SetNX(context.Background(), key, "1", 30*24*time.Hour).Result()
	return ok, err
}

// ClearOrderProcessed releases an order's processed marker so a webhook
// redelivery can retry after a transient completion failure.
func (r *Redis) ClearOrderProcessed(orderID string) error {
	key := "order_processed:" + orderID
	_, err := r.Client.Del(context.Background(), key).Result()
	return err
}
