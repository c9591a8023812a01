package service

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/launchpad-tools/quoter/internal/config"
	"github.com/launchpad-tools/quoter/internal/curve"
	"github.com/launchpad-tools/quoter/internal/sale"
)

type stubReader struct {
	snap         *sale.Snapshot
	pool         *sale.PoolState
	telemetryErr error
	poolErr      error
	invalidated  int
}

func (r *stubReader) Telemetry(_ context.Context) (*sale.Snapshot, error) {
	return r.snap, r.telemetryErr
}

func (r *stubReader) Pool(_ context.Context) (*sale.PoolState, error) {
	return r.pool, r.poolErr
}

func (r *stubReader) Invalidate() { r.invalidated++ }

func e18(n int64) *big.Int {
	out := big.NewInt(n)
	return out.Mul(out, new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func testConfig() *config.Config {
	return &config.Config{
		RPCList:        []string{"https://rpc.example.org"},
		SaleAddress:    "0x1111111111111111111111111111111111111111",
		SaleCapCoins:   800_000_000,
		QuadCapCoins:   200_000_000,
		TargetRaiseEth: "2",
		TotalSupply:    1_000_000_000,
		SwapFeeBps:     30,
		SlippageBps:    100,
		PriceDelay:     500,
		Retries:        3,
		EthUsdRate:     "2500",
	}
}

func newService(t *testing.T, reader *stubReader) *Service {
	t.Helper()
	svc, err := New(testConfig(), reader, zaptest.NewLogger(t))
	require.NoError(t, err)
	return svc
}

func activeSnap(netSold, escrow *big.Int) *sale.Snapshot {
	return &sale.Snapshot{
		NetSold:      netSold,
		EthEscrowWei: escrow,
		Status:       curve.StatusActive,
		FetchedAt:    time.Now(),
	}
}

func TestBuyQuoteFromTelemetry(t *testing.T) {
	reader := &stubReader{snap: activeSnap(big.NewInt(0), big.NewInt(0))}
	svc := newService(t, reader)

	quote, snap, err := svc.BuyQuote(context.Background(), e18(1))
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, 1, quote.CoinsOut.Sign())
	assert.True(t, quote.AmountInWei.Cmp(e18(1)) <= 0, "never charges above the budget")
	assert.True(t, quote.MinCoinsOut.Cmp(quote.CoinsOut) <= 0)
}

func TestBuyQuoteRejectsGraduatedSale(t *testing.T) {
	snap := activeSnap(e18(800_000_000), e18(2))
	snap.Status = curve.StatusFinalized
	svc := newService(t, &stubReader{snap: snap})

	_, _, err := svc.BuyQuote(context.Background(), e18(1))
	assert.ErrorIs(t, err, curve.ErrInsufficientSupply)
}

func TestBuyQuoteSurfacesTelemetryFailure(t *testing.T) {
	svc := newService(t, &stubReader{telemetryErr: errors.New("rpc down")})

	_, _, err := svc.BuyQuote(context.Background(), e18(1))
	assert.EqualError(t, err, "rpc down")
}

func TestRefreshQuoteHonoursSlippageFloor(t *testing.T) {
	reader := &stubReader{snap: activeSnap(big.NewInt(0), big.NewInt(0))}
	svc := newService(t, reader)

	quote, _, err := svc.BuyQuote(context.Background(), e18(1))
	require.NoError(t, err)

	t.Run("unchanged sale keeps the quote", func(t *testing.T) {
		fresh, err := svc.RefreshQuote(context.Background(), quote)
		require.NoError(t, err)
		assert.Zero(t, fresh.CoinsOut.Cmp(quote.CoinsOut))
		assert.Equal(t, 1, reader.invalidated)
	})

	t.Run("sale moved past the floor", func(t *testing.T) {
		reader.snap = activeSnap(e18(400_000_000), e18(1))
		_, err := svc.RefreshQuote(context.Background(), quote)

		var slippage *curve.SlippageExceededError
		require.ErrorAs(t, err, &slippage)
		assert.EqualValues(t, 100, slippage.ToleranceBps)
	})
}

func TestProjectionActivePhase(t *testing.T) {
	reader := &stubReader{snap: activeSnap(e18(4_000_000), e18(1))}
	svc := newService(t, reader)

	proj, snap, err := svc.Projection(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.True(t, proj.IsBondingPhase)
	assert.Zero(t, proj.EffectiveFeeBps)
	assert.Equal(t, 1, proj.MarketCapWei.Sign())
	assert.False(t, proj.MarketCapUsd.IsZero(), "usd leg filled from configured rate")
}

func TestProjectionFinalizedNeedsPoolState(t *testing.T) {
	snap := activeSnap(e18(800_000_000), e18(2))
	snap.Status = curve.StatusFinalized
	reader := &stubReader{
		snap: snap,
		pool: &sale.PoolState{
			ReserveEthWei:     e18(10),
			ReserveToken:      e18(1_000_000),
			CirculatingSupply: e18(1_000_000_000),
		},
	}
	svc := newService(t, reader)

	proj, _, err := svc.Projection(context.Background())
	require.NoError(t, err)

	assert.False(t, proj.IsBondingPhase)
	assert.EqualValues(t, 30, proj.EffectiveFeeBps)
	assert.Zero(t, proj.MarketCapWei.Cmp(e18(10_000)), "10 ETH over 1M tokens across 1B supply")

	t.Run("pool fetch failure propagates", func(t *testing.T) {
		reader.pool = nil
		reader.poolErr = errors.New("pool call reverted")
		_, _, err := svc.Projection(context.Background())
		assert.EqualError(t, err, "pool call reverted")
	})
}

func TestProjectionRejectsBadSnapshot(t *testing.T) {
	reader := &stubReader{snap: activeSnap(e18(800_000_001), e18(2))}
	svc := newService(t, reader)

	_, _, err := svc.Projection(context.Background())
	assert.ErrorIs(t, err, curve.ErrStaleTelemetry)
}

func TestWatchStreamsProgress(t *testing.T) {
	cfg := testConfig()
	cfg.PriceDelay = 1
	reader := &stubReader{snap: activeSnap(e18(200_000_000), e18(1))}
	svc, err := New(cfg, reader, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	events := svc.Watch(ctx)

	select {
	case ev := <-events:
		assert.Equal(t, sale.EventProgress, ev.Type)
		assert.EqualValues(t, 2500, ev.ProgressBps)
	case <-time.After(5 * time.Second):
		t.Fatal("no progress event")
	}

	cancel()
	for range events {
	}
}

func TestCurvePreview(t *testing.T) {
	svc := newService(t, &stubReader{})

	points, err := svc.CurvePreview(11)
	require.NoError(t, err)
	require.Len(t, points, 11)
	assert.Zero(t, points[10].CumulativeCostWei.Cmp(e18(2)), "endpoint hits the target raise")
}
