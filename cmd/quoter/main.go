// ====================================
// File: cmd/quoter/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/launchpad-tools/quoter/internal/config"
	"github.com/launchpad-tools/quoter/internal/curve"
	"github.com/launchpad-tools/quoter/internal/logger"
	"github.com/launchpad-tools/quoter/internal/sale"
	"github.com/launchpad-tools/quoter/internal/service"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	budget := flag.String("budget", "", "ETH budget to quote a buy for")
	showCap := flag.Bool("cap", false, "print the implied market capitalization")
	curvePoints := flag.Int("curve", 0, "print a curve preview with this many sample points")
	compareRaise := flag.String("compare", "", "also preview the curve recalibrated to this target raise (ETH)")
	watch := flag.Bool("watch", false, "stream sale progress until graduation")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	log, err := logger.CreatePrettyLogger(cfg.DebugLogging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger error:", err)
		os.Exit(1)
	}
	defer log.Sync()

	svc, err := service.Connect(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to reach the sale contract", zap.Error(err))
	}

	if err := run(ctx, svc, log, *budget, *showCap, *curvePoints, *compareRaise, *watch); err != nil {
		log.Fatal("Command failed", zap.Error(err))
	}
}

func run(ctx context.Context, svc *service.Service, log *zap.Logger, budget string, showCap bool, curvePoints int, compareRaise string, watch bool) error {
	if curvePoints > 0 {
		if err := printCurve(svc, curvePoints); err != nil {
			return err
		}
		if compareRaise != "" {
			if err := printComparison(svc, curvePoints, compareRaise); err != nil {
				return err
			}
		}
	}

	if budget != "" {
		if err := printQuote(ctx, svc, budget); err != nil {
			return err
		}
	}

	if showCap {
		if err := printProjection(ctx, svc); err != nil {
			return err
		}
	}

	if watch {
		return watchSale(ctx, svc, log)
	}
	return nil
}

func printQuote(ctx context.Context, svc *service.Service, budget string) error {
	amount, err := decimal.NewFromString(budget)
	if err != nil {
		return fmt.Errorf("invalid budget %q: %w", budget, err)
	}
	wei := amount.Mul(decimal.New(1, 18))
	if !wei.IsInteger() || !wei.IsPositive() {
		return fmt.Errorf("budget %q is not a positive wei-aligned amount", budget)
	}

	quote, snap, err := svc.BuyQuote(ctx, wei.BigInt())
	if err != nil {
		return err
	}

	fmt.Printf("Sale progress:   %s%%\n", decimal.New(snap.ProgressBps(svc.Params()), -2))
	fmt.Printf("Coins out:       %s\n", decimal.NewFromBigInt(quote.CoinsOut, -18))
	fmt.Printf("Min after slip:  %s\n", decimal.NewFromBigInt(quote.MinCoinsOut, -18))
	fmt.Printf("Charged:         %s ETH\n", decimal.NewFromBigInt(quote.AmountInWei, -18))
	fmt.Printf("Price impact:    %s%%\n", decimal.New(quote.PriceImpactBps, -2))
	return nil
}

func printProjection(ctx context.Context, svc *service.Service) error {
	proj, _, err := svc.Projection(ctx)
	if err != nil {
		return err
	}

	phase := "bonding"
	if !proj.IsBondingPhase {
		phase = "pool"
	}
	fmt.Printf("Phase:           %s\n", phase)
	fmt.Printf("Market cap:      %s ETH\n", decimal.NewFromBigInt(proj.MarketCapWei, -18))
	if !proj.MarketCapUsd.IsZero() {
		fmt.Printf("Market cap USD:  $%s\n", proj.MarketCapUsd.StringFixed(0))
	}
	fmt.Printf("Swap fee:        %s%%\n", decimal.New(int64(proj.EffectiveFeeBps), -2))
	return nil
}

func printCurve(svc *service.Service, points int) error {
	samples, err := svc.CurvePreview(points)
	if err != nil {
		return err
	}
	printSamples(samples)
	return nil
}

func printSamples(samples []curve.SamplePoint) {
	fmt.Println("  sold%      price (wei/coin)           cumulative (ETH)")
	for _, p := range samples {
		fmt.Printf("%7s%%  %20s  %24s\n",
			p.PercentSold.StringFixed(2),
			p.MarginalPriceWei.String(),
			decimal.NewFromBigInt(p.CumulativeCostWei, -18))
	}
}

// printComparison recalibrates the same cap geometry to a different target raise and
// prints that curve next to nothing else; run it together with -curve to compare.
func printComparison(svc *service.Service, points int, compareRaise string) error {
	raise, err := decimal.NewFromString(compareRaise)
	if err != nil {
		return fmt.Errorf("invalid compare raise %q: %w", compareRaise, err)
	}
	wei := raise.Mul(decimal.New(1, 18))
	if !wei.IsInteger() || !wei.IsPositive() {
		return fmt.Errorf("compare raise %q is not a positive wei-aligned amount", compareRaise)
	}

	base := svc.Params()
	alt, err := curve.Calibrate(base.SaleCap, base.QuadCap, wei.BigInt())
	if err != nil {
		return err
	}
	samples, err := curve.Sample(alt, points)
	if err != nil {
		return err
	}

	fmt.Printf("\nRecalibrated to a %s ETH raise:\n", raise)
	printSamples(samples)
	return nil
}

func watchSale(ctx context.Context, svc *service.Service, log *zap.Logger) error {
	log.Info("👀 Watching sale progress, ctrl+c to stop")
	for ev := range svc.Watch(ctx) {
		switch ev.Type {
		case sale.EventGraduated:
			log.Info("🎓 Sale graduated to pool trading")
			return nil
		case sale.EventDeadlinePassed:
			log.Warn("⏰ Sale deadline passed", zap.Int64("progress_bps", ev.ProgressBps))
		default:
			log.Info("Progress", zap.Int64("progress_bps", ev.ProgressBps))
		}
	}
	// Channel closed on shutdown.
	return nil
}
