// Package cart provides Valkey-backed pre-order staging. Each user's cart
// is a hash of JSON entries under one key with a TTL, so a cart expires on
// its own, can be cleared wholesale on sign-out, and never touches the
// relational store — at checkout the client translates it into an order
// submission and the cart is discarded.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"printdesk/internal/models"
)

const (
	// DefaultTTL is how long an untouched cart lives before expiry,
	// matching the identity provider's session lifetime.
	DefaultTTL = 24 * time.Hour

	// keyPrefix namespaces cart keys in Valkey to avoid collisions.
	keyPrefix = "cart:"
)

// ConnectValkey creates a Valkey client and verifies the connection with a ping.
func ConnectValkey(host, port, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("valkey ping: %w", err)
	}

	slog.Info("valkey connected", "addr", fmt.Sprintf("%s:%s", host, port))
	return client, nil
}

// Store manages cart staging in Valkey.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a cart store backed by the given Valkey client.
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		ttl:    DefaultTTL,
	}
}

// Add stages an item in the user's cart and refreshes the cart TTL.
// The entry gets an opaque id used for later removal.
func (s *Store) Add(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	item.ID = uuid.New().String()
	item.AddedAt = time.Now()

	payload, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("cart marshal: %w", err)
	}

	key := keyPrefix + item.UserEmail
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, item.ID, payload)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("cart add: %w", err)
	}
	return item, nil
}

// List returns the user's staged items, oldest first.
func (s *Store) List(ctx context.Context, userEmail string) ([]models.CartItem, error) {
	entries, err := s.client.HGetAll(ctx, keyPrefix+userEmail).Result()
	if err != nil {
		return nil, fmt.Errorf("cart list: %w", err)
	}

	items := make([]models.CartItem, 0, len(entries))
	for _, raw := range entries {
		var item models.CartItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("cart unmarshal: %w", err)
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].AddedAt.Before(items[j].AddedAt)
	})
	return items, nil
}

// Remove deletes a single staged item. Removing an unknown id is a no-op.
func (s *Store) Remove(ctx context.Context, userEmail, itemID string) error {
	if err := s.client.HDel(ctx, keyPrefix+userEmail, itemID).Err(); err != nil {
		return fmt.Errorf("cart remove: %w", err)
	}
	return nil
}

// Clear drops the user's entire cart, as happens on sign-out.
func (s *Store) Clear(ctx context.Context, userEmail string) error {
	if err := s.client.Del(ctx, keyPrefix+userEmail).Err(); err != nil {
		return fmt.Errorf("cart clear: %w", err)
	}
	return nil
}
