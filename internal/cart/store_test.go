package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/model"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, time.Hour), mr
}

func TestAddMergesLines(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, 7, model.CartItem{ItemID: 1, Kind: model.KindArtwork, Name: "Koi", PriceCents: 5000, Quantity: 1})
	require.NoError(t, err)
	items, err := s.Add(ctx, 7, model.CartItem{ItemID: 1, Kind: model.KindArtwork, Name: "Koi", PriceCents: 5000, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.EqualValues(t, 3, items[0].Quantity)
	assert.Equal(t, uint64(15000), model.CartTotal(items))

	assert.True(t, mr.Exists("cart:7"))
	assert.Equal(t, time.Hour, mr.TTL("cart:7"))

	again, err := s.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, items, again)
}

func TestSetQuantityAndRemove(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	_, err := s.Add(ctx, 7, model.CartItem{ItemID: 1, PriceCents: 100})
	require.NoError(t, err)
	_, err = s.Add(ctx, 7, model.CartItem{ItemID: 2, PriceCents: 200})
	require.NoError(t, err)

	_, err = s.SetQuantity(ctx, 7, 1, 0)
	assert.ErrorIs(t, err, ErrQuantity)
	_, err = s.SetQuantity(ctx, 7, 9, 2)
	assert.ErrorIs(t, err, ErrItemNotInCart)

	items, err := s.SetQuantity(ctx, 7, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(900), model.CartTotal(items))

	items, err = s.Remove(ctx, 7, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, err = s.Remove(ctx, 7, 2)
	require.NoError(t, err)
	assert.False(t, mr.Exists("cart:7"))
}

func TestEmptyCart(t *testing.T) {
	s, _ := newStore(t)
	items, err := s.Get(context.Background(), 99)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestConcurrentAddsAreNotLost(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Add(ctx, 7, model.CartItem{ItemID: 1, PriceCents: 500, Quantity: 1})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	items, err := s.Get(ctx, 7)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.EqualValues(t, writers, items[0].Quantity)
}
