package orderstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/tradegw/internal/apierr"
	"github.com/betbot/tradegw/internal/domain"
)

type stubMarkets map[string]domain.Market

func (s stubMarkets) Market(_ context.Context, name string, optional bool) (*domain.Market, error) {
	if name == "" {
		if optional {
			return nil, nil
		}
		return nil, apierr.New(apierr.MarketNotProvided)
	}
	m, ok := s[name]
	if !ok {
		return nil, apierr.New(apierr.InvalidMarket)
	}
	return &m, nil
}

var testMarkets = stubMarkets{
	"BTC-LTC": {Name: "BTC-LTC", BaseCurrency: "BTC", MarketCurrency: "LTC", MinTradeSize: decimal.RequireFromString("0.001"), IsActive: true},
	"BTC-ETH": {Name: "BTC-ETH", BaseCurrency: "BTC", MarketCurrency: "ETH", MinTradeSize: decimal.RequireFromString("0.01"), IsActive: true},
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now 每次调用前进 1ms，保证 openedAt 严格递增
func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func newTestService(t *testing.T) (*Service, *SQLiteRepository) {
	t.Helper()
	repo, err := OpenSQLite(filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	clock := &stepClock{now: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
	return NewService(repo, testMarkets, WithClock(clock.Now)), repo
}

func requireCode(t *testing.T, err error, code apierr.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, apierr.CodeOf(err), "err=%v", err)
}

func TestCreateOrderValidationOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name              string
		market, qty, rate string
		want              apierr.Code
	}{
		{"all missing", "", "", "", apierr.MarketNotProvided},
		{"unknown market beats bad qty", "BTC-DOGE", "x", "x", apierr.InvalidMarket},
		{"missing qty", "BTC-LTC", "", "", apierr.QuantityNotProvided},
		{"bad qty beats missing rate", "BTC-LTC", "abc", "", apierr.QuantityInvalid},
		{"missing rate", "BTC-LTC", "1", "", apierr.RateNotProvided},
		{"bad rate", "BTC-LTC", "1", "1e", apierr.RateInvalid},
		{"below min trade size beats dust", "BTC-ETH", "0.005", "0.0001", apierr.MinTradeRequirementNotMet},
		{"dust", "BTC-LTC", "0.002", "0.01", apierr.DustTradeDisallowedMinValue50KSat},
		{"negative rate is dust", "BTC-LTC", "1", "-1", apierr.DustTradeDisallowedMinValue50KSat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateOrder(ctx, "k1", domain.DirectionBuy, tc.market, tc.qty, tc.rate)
			requireCode(t, err, tc.want)
		})
	}
}

func TestCreateOrderSucceedsIffAboveMinimums(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	minSize := testMarkets["BTC-LTC"].MinTradeSize

	amounts := []string{"0.0009", "0.001", "0.01", "1", "100"}
	prices := []string{"0.00001", "0.0001", "0.001", "0.1", "1"}
	for _, a := range amounts {
		for _, p := range prices {
			amount := decimal.RequireFromString(a)
			price := decimal.RequireFromString(p)
			wantOK := amount.GreaterThanOrEqual(minSize) && amount.Mul(price).GreaterThanOrEqual(MinTradeValue)

			id, err := svc.CreateOrder(ctx, "k1", domain.DirectionSell, "BTC-LTC", a, p)
			if wantOK {
				assert.NoError(t, err, "amount=%s price=%s", a, p)
				assert.NotEmpty(t, id)
			} else {
				assert.Error(t, err, "amount=%s price=%s", a, p)
			}
		}
	}
}

func TestCreateOrderPersistsOpenedOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateOrder(ctx, "k1", domain.DirectionBuy, "BTC-LTC", "1.50000000", "0.00771234")
	require.NoError(t, err)

	o, err := svc.GetOrder(ctx, "k1", id)
	require.NoError(t, err)
	assert.Equal(t, id, o.ID)
	assert.Equal(t, "k1", o.Owner)
	assert.Equal(t, domain.DirectionBuy, o.Direction)
	assert.Equal(t, "BTC-LTC", o.Market)
	assert.True(t, o.RequestedAmount.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, "0.00771234", o.RequestedPrice.String())
	assert.True(t, o.ExecutedAmount.IsZero())
	assert.Nil(t, o.ExecutedPrice)
	assert.Equal(t, domain.OrderStatusOpened, o.Status)
	assert.Nil(t, o.ClosedAt)
	assert.Equal(t, time.UTC, o.OpenedAt.Location())
}

func TestCancelOrderLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateOrder(ctx, "k1", domain.DirectionBuy, "BTC-LTC", "1", "0.01")
	require.NoError(t, err)

	requireCode(t, svc.CancelOrder(ctx, "k1", ""), apierr.UUIDNotProvided)
	requireCode(t, svc.CancelOrder(ctx, "k1", "not-a-uuid"), apierr.UUIDInvalid)
	requireCode(t, svc.CancelOrder(ctx, "k1", "4b4a5c1e-0000-4000-8000-000000000000"), apierr.InvalidOrder)
	requireCode(t, svc.CancelOrder(ctx, "k2", id), apierr.InvalidOrder)

	require.NoError(t, svc.CancelOrder(ctx, "k1", id))
	requireCode(t, svc.CancelOrder(ctx, "k1", id), apierr.OrderNotOpen)

	o, err := svc.GetOrder(ctx, "k1", id)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCanceled, o.Status)
	require.NotNil(t, o.ClosedAt)
	assert.True(t, o.ClosedAt.After(o.OpenedAt))
}

func TestGetOrderIsOwnershipScoped(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateOrder(ctx, "k1", domain.DirectionBuy, "BTC-LTC", "1", "0.01")
	require.NoError(t, err)

	_, err = svc.GetOrder(ctx, "k2", id)
	requireCode(t, err, apierr.InvalidOrder)

	// 大写形式的 uuid 也能找到
	o, err := svc.GetOrder(ctx, "k1", strings.ToUpper(id))
	require.NoError(t, err)
	assert.Equal(t, id, o.ID)
}

func TestConcurrentCancelOnlyOneWins(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateOrder(ctx, "k1", domain.DirectionBuy, "BTC-LTC", "1", "0.01")
	require.NoError(t, err)

	const n = 10
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.CancelOrder(ctx, "k1", id)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.Equal(t, apierr.OrderNotOpen, apierr.CodeOf(err))
	}
	assert.Equal(t, 1, wins)
}

func TestListOpenOrders(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := svc.CreateOrder(ctx, "k1", domain.DirectionBuy, "BTC-LTC", "1", fmt.Sprintf("0.0%d", i+1))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	ethID, err := svc.CreateOrder(ctx, "k1", domain.DirectionSell, "BTC-ETH", "1", "0.05")
	require.NoError(t, err)
	_, err = svc.CreateOrder(ctx, "k2", domain.DirectionBuy, "BTC-LTC", "1", "0.01")
	require.NoError(t, err)
	require.NoError(t, svc.CancelOrder(ctx, "k1", ids[1]))

	all, err := svc.ListOpenOrders(ctx, "k1", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{ids[0], ids[2], ethID}, []string{all[0].ID, all[1].ID, all[2].ID})

	ltc, err := svc.ListOpenOrders(ctx, "k1", "BTC-LTC")
	require.NoError(t, err)
	assert.Len(t, ltc, 2)

	_, err = svc.ListOpenOrders(ctx, "k1", "BTC-NOPE")
	requireCode(t, err, apierr.InvalidMarket)

	filled, err := svc.ListFilledOrders(ctx, "k1", "")
	require.NoError(t, err)
	assert.Empty(t, filled)
	assert.NotNil(t, filled)
}

type failingRepo struct{ Repository }

func (failingRepo) Insert(context.Context, *domain.Order) error { return errors.New("disk full") }
func (failingRepo) Get(context.Context, string, string) (*domain.Order, error) {
	return nil, errors.New("disk full")
}
func (failingRepo) List(context.Context, Filter) ([]*domain.Order, error) {
	return nil, errors.New("disk full")
}

func TestStorageFailureIsInternal(t *testing.T) {
	svc := NewService(failingRepo{}, testMarkets)
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, "k1", domain.DirectionBuy, "BTC-LTC", "1", "0.01")
	requireCode(t, err, apierr.InternalError)

	_, err = svc.GetOrder(ctx, "k1", "4b4a5c1e-0000-4000-8000-000000000000")
	requireCode(t, err, apierr.InternalError)

	_, err = svc.ListOpenOrders(ctx, "k1", "")
	requireCode(t, err, apierr.InternalError)
}

func TestSQLiteRoundTripsFilledOrder(t *testing.T) {
	_, repo := newTestService(t)
	ctx := context.Background()

	price := decimal.RequireFromString("0.0123")
	closed := time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.UTC)
	in := &domain.Order{
		ID:              "0e0f4f56-2b54-4c1c-9d0a-6f4d1c2f7a10",
		Owner:           "k1",
		Direction:       domain.DirectionSell,
		Market:          "BTC-LTC",
		RequestedAmount: decimal.RequireFromString("2"),
		RequestedPrice:  decimal.RequireFromString("0.0125"),
		ExecutedAmount:  decimal.RequireFromString("2"),
		ExecutedPrice:   &price,
		Fee:             decimal.RequireFromString("0.0000615"),
		Status:          domain.OrderStatusFilled,
		OpenedAt:        closed.Add(-time.Hour),
		ClosedAt:        &closed,
	}
	require.NoError(t, repo.Insert(ctx, in))

	out, err := repo.Get(ctx, "k1", in.ID)
	require.NoError(t, err)
	require.NotNil(t, out.ExecutedPrice)
	assert.True(t, out.ExecutedPrice.Equal(price))
	assert.Equal(t, "0.0000615", out.Fee.String())
	assert.True(t, out.ClosedAt.Equal(closed))

	filled, err := repo.List(ctx, Filter{Owner: "k1", Status: domain.OrderStatusFilled})
	require.NoError(t, err)
	assert.Len(t, filled, 1)

	// 已成交订单不能被撤销
	ok, err := repo.Cancel(ctx, "k1", in.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}
