// =============================
// File: internal/ui/format.go
// =============================
package ui

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Display-only conversions. All engine math stays in integer wei; decimals appear
// here, at the very edge.

func formatEth(wei *big.Int) string {
	if wei == nil {
		return "-"
	}
	return decimal.NewFromBigInt(wei, -18).StringFixed(6) + " ETH"
}

func formatCoins(units *big.Int) string {
	if units == nil {
		return "-"
	}
	return decimal.NewFromBigInt(units, -18).StringFixed(2)
}

func formatBps(bps int64) string {
	return decimal.New(bps, -2).StringFixed(2) + "%"
}

func formatUsd(value decimal.Decimal) string {
	if value.IsZero() {
		return ""
	}
	return "$" + value.StringFixed(0)
}
