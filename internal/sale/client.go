// =============================
// File: internal/sale/client.go
// =============================

package sale

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/launchpad-tools/quoter/internal/curve"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// saleABI is the read surface of the sale contract. Quoting needs nothing beyond these
// views; purchase submission lives with the wallet layer, not here.
const saleABI = `[
	{"type":"function","stateMutability":"view","name":"netSold","inputs":[],"outputs":[{"type":"uint256"}]},
	{"type":"function","stateMutability":"view","name":"totalRaised","inputs":[],"outputs":[{"type":"uint256"}]},
	{"type":"function","stateMutability":"view","name":"currentPrice","inputs":[],"outputs":[{"type":"uint256"}]},
	{"type":"function","stateMutability":"view","name":"saleDeadline","inputs":[],"outputs":[{"type":"uint256"}]},
	{"type":"function","stateMutability":"view","name":"finalized","inputs":[],"outputs":[{"type":"bool"}]},
	{"type":"function","stateMutability":"view","name":"poolReserves","inputs":[],"outputs":[{"type":"uint256"},{"type":"uint256"}]},
	{"type":"function","stateMutability":"view","name":"circulatingSupply","inputs":[],"outputs":[{"type":"uint256"}]}
]`

// ContractCaller is the slice of ethclient.Client the reader uses. Narrowed to an
// interface so tests can answer calls without a node.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Client reads sale telemetry and pool state from the chain. Reads retry with
// exponential backoff and land in a short TTL cache: the TUI re-quotes on every
// keystroke and must not turn typing into an RPC storm.
type Client struct {
	caller      ContractCaller
	saleAddr    common.Address
	abi         abi.ABI
	logger      *zap.Logger
	retries     uint
	cachePeriod time.Duration

	mu         sync.Mutex
	cached     *Snapshot
	cachedPool *PoolState
	cachedAt   time.Time
}

// NewClient wires a telemetry reader for one sale contract.
func NewClient(caller ContractCaller, saleAddr common.Address, cachePeriod time.Duration, retries int, logger *zap.Logger) (*Client, error) {
	parsed, err := abi.JSON(strings.NewReader(saleABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse sale ABI: %w", err)
	}
	if retries < 1 {
		retries = 1
	}
	return &Client{
		caller:      caller,
		saleAddr:    saleAddr,
		abi:         parsed,
		logger:      logger.Named("sale-client"),
		retries:     uint(retries),
		cachePeriod: cachePeriod,
	}, nil
}

// Telemetry returns the current sale snapshot, served from cache while it is fresh.
func (c *Client) Telemetry(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	if c.cached != nil && time.Since(c.cachedAt) < c.cachePeriod {
		snap := c.cached
		c.mu.Unlock()
		c.logger.Debug("Using cached telemetry", zap.Time("cached_at", c.cachedAt))
		return snap, nil
	}
	c.mu.Unlock()

	snap, err := c.fetchTelemetry(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cached = snap
	c.cachedAt = snap.FetchedAt
	c.mu.Unlock()

	c.logger.Debug("Updated telemetry cache",
		zap.String("net_sold", snap.NetSold.String()),
		zap.String("eth_escrow", snap.EthEscrowWei.String()),
		zap.String("status", snap.Status.String()))
	return snap, nil
}

// Pool returns the post-graduation pool state. Callers should only ask once the sale
// reports FINALIZED; before that the contract answers zeros.
func (c *Client) Pool(ctx context.Context) (*PoolState, error) {
	c.mu.Lock()
	if c.cachedPool != nil && time.Since(c.cachedAt) < c.cachePeriod {
		pool := c.cachedPool
		c.mu.Unlock()
		return pool, nil
	}
	c.mu.Unlock()

	var (
		reserveEth, reserveToken *big.Int
		circulating              *big.Int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := c.call(gctx, "poolReserves")
		if err != nil {
			return err
		}
		if len(out) != 2 {
			return fmt.Errorf("poolReserves returned %d values", len(out))
		}
		var ok bool
		if reserveEth, ok = out[0].(*big.Int); !ok {
			return fmt.Errorf("unexpected poolReserves output type")
		}
		reserveToken, _ = out[1].(*big.Int)
		return nil
	})
	g.Go(func() error {
		v, err := c.callUint(gctx, "circulatingSupply")
		if err != nil {
			return err
		}
		circulating = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pool := &PoolState{
		ReserveEthWei:     reserveEth,
		ReserveToken:      reserveToken,
		CirculatingSupply: circulating,
	}
	c.mu.Lock()
	c.cachedPool = pool
	c.mu.Unlock()
	return pool, nil
}

// Invalidate drops the cache so the next read hits the chain. The monitor calls it
// after it sees a graduation.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.cachedPool = nil
	c.mu.Unlock()
}

func (c *Client) fetchTelemetry(ctx context.Context) (*Snapshot, error) {
	var (
		netSold, escrow, price, deadline *big.Int
		finalized                        bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.assignUint(gctx, "netSold", &netSold) })
	g.Go(func() error { return c.assignUint(gctx, "totalRaised", &escrow) })
	g.Go(func() error { return c.assignUint(gctx, "currentPrice", &price) })
	g.Go(func() error { return c.assignUint(gctx, "saleDeadline", &deadline) })
	g.Go(func() error {
		out, err := c.call(gctx, "finalized")
		if err != nil {
			return err
		}
		if len(out) != 1 {
			return fmt.Errorf("finalized returned %d values", len(out))
		}
		var ok bool
		if finalized, ok = out[0].(bool); !ok {
			return fmt.Errorf("unexpected finalized output type")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch sale telemetry: %w", err)
	}

	status := curve.StatusActive
	if finalized {
		status = curve.StatusFinalized
	}
	// A zero saleDeadline means the sale has no deadline at all.
	var due time.Time
	if deadline.Sign() > 0 {
		due = time.Unix(deadline.Int64(), 0).UTC()
	}
	return &Snapshot{
		NetSold:         netSold,
		EthEscrowWei:    escrow,
		CurrentPriceWei: price,
		Deadline:        due,
		Status:          status,
		FetchedAt:       time.Now(),
	}, nil
}

func (c *Client) assignUint(ctx context.Context, method string, dst **big.Int) error {
	v, err := c.callUint(ctx, method)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func (c *Client) callUint(ctx context.Context, method string) (*big.Int, error) {
	out, err := c.call(ctx, method)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%s returned %d values", method, len(out))
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s output type %T", method, out[0])
	}
	return v, nil
}

// call packs one view method, runs eth_call with retry and unpacks the result.
func (c *Client) call(ctx context.Context, method string) ([]interface{}, error) {
	input, err := c.abi.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &c.saleAddr, Data: input}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 2 * time.Second

	notify := func(err error, duration time.Duration) {
		c.logger.Debug("Retrying eth_call",
			zap.String("method", method),
			zap.Duration("backoff", duration),
			zap.Error(err))
	}
	operation := func() ([]byte, error) {
		return c.caller.CallContract(ctx, msg, nil)
	}

	raw, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.retries),
		backoff.WithNotify(notify))
	if err != nil {
		return nil, fmt.Errorf("eth_call %s failed: %w", method, err)
	}

	out, err := c.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return out, nil
}
