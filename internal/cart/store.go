// Package cart keeps each user's cart as one JSON array in Redis.  Every
// mutation rewrites the whole array inside WATCH/MULTI, so a reader always
// sees a complete cart and concurrent writers never drop each other's
// changes.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/studio-booking/internal/model"
)

// MaxQuantity caps a single cart line.
const MaxQuantity = 99

// maxAttempts bounds the optimistic retries of one mutation.
const maxAttempts = 10

var (
	ErrItemNotInCart = errors.New("item not in cart")
	ErrQuantity      = fmt.Errorf("quantity must be between 1 and %d", MaxQuantity)
	// ErrBusy is returned when concurrent writers kept invalidating the
	// cart for every attempt.
	ErrBusy = errors.New("cart is being updated, try again")
)

// Store reads and writes carts.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func key(userID uint64) string { return fmt.Sprintf("cart:%d", userID) }

// Get returns the user's cart; a missing cart is empty.
func (s *Store) Get(ctx context.Context, userID uint64) ([]model.CartItem, error) {
	return decode(s.rdb.Get(ctx, key(userID)))
}

func decode(cmd *redis.StringCmd) ([]model.CartItem, error) {
	raw, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return []model.CartItem{}, nil
	}
	if err != nil {
		return nil, err
	}
	var items []model.CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return items, nil
}

// update runs mutate on the current cart and writes the result under
// WATCH, retrying when another writer changed the cart in between.
func (s *Store) update(ctx context.Context, userID uint64, mutate func([]model.CartItem) ([]model.CartItem, error)) ([]model.CartItem, error) {
	k := key(userID)
	var out []model.CartItem
	txf := func(tx *redis.Tx) error {
		items, err := decode(tx.Get(ctx, k))
		if err != nil {
			return err
		}
		if out, err = mutate(items); err != nil {
			return err
		}
		var raw []byte
		if len(out) > 0 {
			if raw, err = json.Marshal(out); err != nil {
				return err
			}
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			if len(out) == 0 {
				p.Del(ctx, k)
				return nil
			}
			p.Set(ctx, k, raw, s.ttl)
			return nil
		})
		return err
	}
	for i := 0; i < maxAttempts; i++ {
		err := s.rdb.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, ErrBusy
}

// Add puts item in the cart, adding to the quantity of an existing line.
func (s *Store) Add(ctx context.Context, userID uint64, item model.CartItem) ([]model.CartItem, error) {
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	if item.Quantity > MaxQuantity {
		return nil, ErrQuantity
	}
	return s.update(ctx, userID, func(items []model.CartItem) ([]model.CartItem, error) {
		for i := range items {
			if items[i].ItemID == item.ItemID {
				items[i].Quantity += item.Quantity
				items[i].PriceCents = item.PriceCents
				if items[i].Quantity > MaxQuantity {
					return nil, ErrQuantity
				}
				return items, nil
			}
		}
		return append(items, item), nil
	})
}

// SetQuantity changes a line's quantity.
func (s *Store) SetQuantity(ctx context.Context, userID, itemID uint64, qty uint32) ([]model.CartItem, error) {
	if qty < 1 || qty > MaxQuantity {
		return nil, ErrQuantity
	}
	return s.update(ctx, userID, func(items []model.CartItem) ([]model.CartItem, error) {
		for i := range items {
			if items[i].ItemID == itemID {
				items[i].Quantity = qty
				return items, nil
			}
		}
		return nil, ErrItemNotInCart
	})
}

// Remove drops a line.
func (s *Store) Remove(ctx context.Context, userID, itemID uint64) ([]model.CartItem, error) {
	return s.update(ctx, userID, func(items []model.CartItem) ([]model.CartItem, error) {
		out := items[:0]
		found := false
		for _, it := range items {
			if it.ItemID == itemID {
				found = true
				continue
			}
			out = append(out, it)
		}
		if !found {
			return nil, ErrItemNotInCart
		}
		return out, nil
	})
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context, userID uint64) error {
	return s.rdb.Del(ctx, key(userID)).Err()
}
