package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultDedupeWindow is how long a sent invite suppresses repeats
const DefaultDedupeWindow = 24 * time.Hour

// Deduper remembers recently sent notifications in Redis
type Deduper struct {
	client *redis.Client
	prefix string
	window time.Duration
}

// NewRedisClient parses redisURL and checks the connection
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// NewDeduper creates a deduper; keys are namespaced by prefix
func NewDeduper(client *redis.Client, prefix string, window time.Duration) *Deduper {
	if window <= 0 {
		window = DefaultDedupeWindow
	}
	return &Deduper{
		client: client,
		prefix: prefix + "notify:invite:",
		window: window,
	}
}

func (d *Deduper) key(documentID, inviteeID string) string {
	return d.prefix + documentID + ":" + inviteeID
}

// Claim reserves the (document, invitee) pair. It returns false when an
// invite was already sent inside the window.
func (d *Deduper) Claim(ctx context.Context, documentID, inviteeID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.key(documentID, inviteeID), time.Now().UTC().Format(time.RFC3339), d.window).Result()
	if err != nil {
		return false, fmt.Errorf("claim invite notification: %w", err)
	}
	return ok, nil
}

// Release drops a claim so a failed send can be retried
func (d *Deduper) Release(ctx context.Context, documentID, inviteeID string) error {
	if err := d.client.Del(ctx, d.key(documentID, inviteeID)).Err(); err != nil {
		return fmt.Errorf("release invite notification: %w", err)
	}
	return nil
}
