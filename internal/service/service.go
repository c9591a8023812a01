// =================================
// File: internal/service/service.go
// =================================
package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/launchpad-tools/quoter/internal/config"
	"github.com/launchpad-tools/quoter/internal/curve"
	"github.com/launchpad-tools/quoter/internal/sale"
	"github.com/launchpad-tools/quoter/pkg/ethrpc"
)

// saleReader is the slice of sale.Client the service needs; narrowed for tests.
type saleReader interface {
	Telemetry(ctx context.Context) (*sale.Snapshot, error)
	Pool(ctx context.Context) (*sale.PoolState, error)
	Invalidate()
}

// Service ties the on-chain reader to the pricing engine. It owns the calibrated
// curve parameters; everything on-chain flows through the reader's cache.
type Service struct {
	logger *zap.Logger
	cfg    *config.Config
	params curve.Parameters
	reader saleReader
}

func New(cfg *config.Config, reader saleReader, logger *zap.Logger) (*Service, error) {
	params, err := cfg.CurveParameters()
	if err != nil {
		return nil, fmt.Errorf("curve calibration: %w", err)
	}
	return &Service{
		logger: logger.Named("quote_service"),
		cfg:    cfg,
		params: params,
		reader: reader,
	}, nil
}

// Connect dials the configured RPC endpoints and builds a service around them.
func Connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	pool, err := ethrpc.Dial(ctx, cfg.RPCList, logger)
	if err != nil {
		return nil, err
	}

	cachePeriod := time.Duration(cfg.PriceDelay) * time.Millisecond
	reader, err := sale.NewClient(pool, common.HexToAddress(cfg.SaleAddress), cachePeriod, cfg.Retries, logger)
	if err != nil {
		return nil, err
	}
	return New(cfg, reader, logger)
}

func (s *Service) Params() curve.Parameters {
	return s.params
}

// BuyQuote prices a buy for the given wei budget against fresh telemetry.
func (s *Service) BuyQuote(ctx context.Context, budgetWei *big.Int) (curve.Quote, *sale.Snapshot, error) {
	snap, err := s.reader.Telemetry(ctx)
	if err != nil {
		return curve.Quote{}, nil, err
	}
	if err := snap.Validate(s.params); err != nil {
		return curve.Quote{}, nil, err
	}
	if snap.Status == curve.StatusFinalized {
		return curve.Quote{}, snap, fmt.Errorf("sale already graduated: %w", curve.ErrInsufficientSupply)
	}

	quote, err := curve.BuyQuote(snap.NetSold, s.params, budgetWei, uint16(s.cfg.SlippageBps))
	if err != nil {
		return curve.Quote{}, snap, err
	}

	s.logger.Debug("Quoted buy",
		zap.String("budget_wei", budgetWei.String()),
		zap.String("coins_out", quote.CoinsOut.String()),
		zap.Int64("price_impact_bps", quote.PriceImpactBps))
	return quote, snap, nil
}

// RefreshQuote re-prices a previously issued quote against fresh telemetry and
// rejects it when the sale has moved past the quote's slippage floor.
func (s *Service) RefreshQuote(ctx context.Context, prior curve.Quote) (curve.Quote, error) {
	s.reader.Invalidate()
	fresh, _, err := s.BuyQuote(ctx, prior.AmountInWei)
	if err != nil {
		return curve.Quote{}, err
	}
	if fresh.CoinsOut.Cmp(prior.MinCoinsOut) < 0 {
		return curve.Quote{}, &curve.SlippageExceededError{
			ToleranceBps:  uint16(s.cfg.SlippageBps),
			OriginalError: curve.ErrInsufficientSupply,
		}
	}
	return fresh, nil
}

// Projection reports the implied market capitalization for the current phase.
func (s *Service) Projection(ctx context.Context) (curve.Projection, *sale.Snapshot, error) {
	snap, err := s.reader.Telemetry(ctx)
	if err != nil {
		return curve.Projection{}, nil, err
	}
	if err := snap.Validate(s.params); err != nil {
		return curve.Projection{}, nil, err
	}

	in := curve.ProjectionInput{
		Status:             snap.Status,
		SaleCap:            s.params.SaleCap,
		NetSold:            snap.NetSold,
		EthEscrowWei:       snap.EthEscrowWei,
		CurrentPriceWei:    snap.CurrentPriceWei,
		TotalNominalSupply: s.cfg.TotalSupplyUnits(),
		EthUsdRate:         s.cfg.EthUsd(),
		SwapFeeBps:         uint16(s.cfg.SwapFeeBps),
	}

	if snap.Status == curve.StatusFinalized {
		pool, err := s.reader.Pool(ctx)
		if err != nil {
			return curve.Projection{}, snap, err
		}
		in.ReserveEthWei = pool.ReserveEthWei
		in.ReserveToken = pool.ReserveToken
		in.CirculatingSupply = pool.CirculatingSupply
	}

	proj, err := curve.Project(in)
	if err != nil {
		return curve.Projection{}, snap, err
	}
	return proj, snap, nil
}

// Watch polls the sale in the background and streams lifecycle events until the
// context is cancelled or the sale graduates.
func (s *Service) Watch(ctx context.Context) <-chan sale.Event {
	interval := time.Duration(s.cfg.PriceDelay) * time.Millisecond
	monitor := sale.NewMonitor(s.reader, s.params, interval, s.logger)
	go monitor.Start(ctx)
	return monitor.Events()
}

// CurvePreview samples the configured curve; no telemetry involved.
func (s *Service) CurvePreview(points int) ([]curve.SamplePoint, error) {
	return curve.Sample(s.params, points)
}
