// ====================================
// File: cmd/tui/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/launchpad-tools/quoter/internal/config"
	"github.com/launchpad-tools/quoter/internal/logger"
	"github.com/launchpad-tools/quoter/internal/service"
	"github.com/launchpad-tools/quoter/internal/ui"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	logPath := flag.String("log", "logs/quoter.log", "log file; stdout belongs to the TUI")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	log, err := logger.CreateFileLogger(*logPath, cfg.DebugLogging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger error:", err)
		os.Exit(1)
	}
	defer log.Sync()

	svc, err := service.Connect(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to reach the sale contract", zap.Error(err))
		fmt.Fprintln(os.Stderr, "connection error:", err)
		os.Exit(1)
	}

	model := ui.NewModel(svc, svc.Params(), log)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := program.Run(); err != nil {
		log.Error("TUI terminated", zap.Error(err))
		fmt.Fprintln(os.Stderr, "tui error:", err)
		os.Exit(1)
	}
}
