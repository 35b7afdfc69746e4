// internal/domain/order/idempotency_test.go
package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKeyStore claims keys in memory with the same first-writer-wins
// semantics as the Redis-backed store
type fakeKeyStore struct {
	claims   map[string]string
	releases int
}

func newFakeKeyStore() *fakeKeyStore {
	return &fakeKeyStore{claims: make(map[string]string)}
}

func (s *fakeKeyStore) Reserve(ctx context.Context, key, orderCode string, ttl time.Duration) (string, bool, error) {
	if existing, ok := s.claims[key]; ok {
		return existing, false, nil
	}
	s.claims[key] = orderCode
	return orderCode, true, nil
}

func (s *fakeKeyStore) Release(ctx context.Context, key string) error {
	delete(s.claims, key)
	s.releases++
	return nil
}

// fakeOrderTable backs find/create closures with an in-memory map
type fakeOrderTable struct {
	orders  map[string]*Order
	creates int
}

func newFakeOrderTable() *fakeOrderTable {
	return &fakeOrderTable{orders: make(map[string]*Order)}
}

func (t *fakeOrderTable) find(ctx context.Context, code string) (*Order, error) {
	o, ok := t.orders[code]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (t *fakeOrderTable) create(code string, userID uint) func() (*Order, error) {
	return func() (*Order, error) {
		t.creates++
		o := &Order{OrderCode: code, UserID: userID, Status: StatusPending}
		t.orders[code] = o
		return o, nil
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestCreateWithIdempotencyYieldsExactlyOneOrder(t *testing.T) {
	ctx := context.Background()
	keys := newFakeKeyStore()
	table := newFakeOrderTable()

	first, fresh, err := createWithIdempotency(ctx, keys, testLogger(),
		"idem-key-1", "ORD-20260828-AAAA1111", 7,
		table.find, table.create("ORD-20260828-AAAA1111", 7))
	require.NoError(t, err)
	assert.True(t, fresh)

	// The retry allocates a new candidate code, but the reservation
	// replays the winner's order instead of creating under it
	second, fresh, err := createWithIdempotency(ctx, keys, testLogger(),
		"idem-key-1", "ORD-20260828-BBBB2222", 7,
		table.find, table.create("ORD-20260828-BBBB2222", 7))
	require.NoError(t, err)

	assert.False(t, fresh)
	assert.Equal(t, first.OrderCode, second.OrderCode)
	assert.Equal(t, 1, table.creates, "one key, one order")
}

func TestCreateWithIdempotencyReleasesKeyOnFailure(t *testing.T) {
	ctx := context.Background()
	keys := newFakeKeyStore()
	table := newFakeOrderTable()

	boom := errors.New("order insert failed")
	_, _, err := createWithIdempotency(ctx, keys, testLogger(),
		"idem-key-1", "ORD-20260828-AAAA1111", 7,
		table.find, func() (*Order, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, keys.releases)

	// The freed key lets the same checkout retry and actually create
	retried, fresh, err := createWithIdempotency(ctx, keys, testLogger(),
		"idem-key-1", "ORD-20260828-BBBB2222", 7,
		table.find, table.create("ORD-20260828-BBBB2222", 7))
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, "ORD-20260828-BBBB2222", retried.OrderCode)
}

func TestCreateWithIdempotencyHidesForeignReplay(t *testing.T) {
	ctx := context.Background()
	keys := newFakeKeyStore()
	table := newFakeOrderTable()

	_, _, err := createWithIdempotency(ctx, keys, testLogger(),
		"idem-key-1", "ORD-20260828-AAAA1111", 7,
		table.find, table.create("ORD-20260828-AAAA1111", 7))
	require.NoError(t, err)

	// Another user replaying the same key never sees the winner's order
	_, _, err = createWithIdempotency(ctx, keys, testLogger(),
		"idem-key-1", "ORD-20260828-BBBB2222", 8,
		table.find, table.create("ORD-20260828-BBBB2222", 8))
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Equal(t, 1, table.creates)
}
