// =============================
// File: internal/ui/model.go
// =============================
package ui

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/launchpad-tools/quoter/internal/curve"
	"github.com/launchpad-tools/quoter/internal/sale"
)

const requestTimeout = 10 * time.Second

// Quoter is the slice of the service layer the screen drives.
type Quoter interface {
	BuyQuote(ctx context.Context, budgetWei *big.Int) (curve.Quote, *sale.Snapshot, error)
	Projection(ctx context.Context) (curve.Projection, *sale.Snapshot, error)
}

type quoteMsg struct {
	quote curve.Quote
	snap  *sale.Snapshot
}

type projectionMsg struct {
	projection curve.Projection
	snap       *sale.Snapshot
}

type errMsg struct{ err error }

// Model is the interactive quote screen: one budget field, a live quote panel and
// the current market projection.
type Model struct {
	logger *zap.Logger
	quoter Quoter
	styles styles

	input   textinput.Model
	spinner spinner.Model
	loading bool

	quote      *curve.Quote
	projection *curve.Projection
	snapshot   *sale.Snapshot
	params     curve.Parameters
	lastErr    error

	width  int
	height int
}

func NewModel(quoter Quoter, params curve.Parameters, logger *zap.Logger) *Model {
	input := textinput.New()
	input.Placeholder = "0.5"
	input.Prompt = "ETH budget > "
	input.CharLimit = 32
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return &Model{
		logger:  logger.Named("quote_screen"),
		quoter:  quoter,
		styles:  defaultStyles(),
		input:   input,
		spinner: spin,
		params:  params,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchProjection())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "enter":
			return m.submit()
		case "r":
			m.loading = true
			return m, m.fetchProjection()
		}

	case quoteMsg:
		m.loading = false
		m.lastErr = nil
		m.quote = &msg.quote
		m.snapshot = msg.snap
		return m, nil

	case projectionMsg:
		m.loading = false
		m.lastErr = nil
		m.projection = &msg.projection
		m.snapshot = msg.snap
		return m, nil

	case errMsg:
		m.loading = false
		m.lastErr = msg.err
		m.logger.Warn("Screen request failed", zap.Error(msg.err))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	// Live re-quote while typing. The service's snapshot cache keeps this from
	// turning keystrokes into RPC traffic.
	if value := m.input.Value(); value != before {
		if budget, err := parseEthBudget(value); err == nil {
			m.loading = true
			return m, tea.Batch(cmd, m.fetchQuote(budget))
		}
	}
	return m, cmd
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	budget, err := parseEthBudget(m.input.Value())
	if err != nil {
		m.lastErr = err
		return m, nil
	}
	m.loading = true
	return m, tea.Batch(m.fetchQuote(budget), m.fetchProjection())
}

func (m *Model) fetchQuote(budgetWei *big.Int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		quote, snap, err := m.quoter.BuyQuote(ctx, budgetWei)
		if err != nil {
			return errMsg{err}
		}
		return quoteMsg{quote: quote, snap: snap}
	}
}

func (m *Model) fetchProjection() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		proj, snap, err := m.quoter.Projection(ctx)
		if err != nil {
			return errMsg{err}
		}
		return projectionMsg{projection: proj, snap: snap}
	}
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("Launchpad Quoter"))
	b.WriteString("\n")

	if m.snapshot != nil {
		b.WriteString(m.phaseLine())
		b.WriteString("\n")
	}
	if m.projection != nil {
		b.WriteString(m.projectionLines())
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(m.spinner.View() + m.styles.muted.Render(" fetching..."))
	case m.lastErr != nil:
		b.WriteString(m.styles.errorLine.Render("✗ " + m.lastErr.Error()))
	case m.quote != nil:
		b.WriteString(m.quotePanel())
	default:
		b.WriteString(m.styles.muted.Render("Enter a budget and press enter."))
	}

	b.WriteString("\n\n")
	b.WriteString(m.styles.muted.Render("enter: quote · r: refresh · q: quit"))
	return m.styles.container.Render(b.String())
}

func (m *Model) phaseLine() string {
	phase := m.snapshot.Status.String()
	line := m.styles.phase.Render(phase)
	if m.snapshot.Status == curve.StatusActive {
		line += m.styles.muted.Render("  sold " + formatBps(m.snapshot.ProgressBps(m.params)) + " of cap")
	}
	return line
}

func (m *Model) projectionLines() string {
	var b strings.Builder
	b.WriteString(m.styles.label.Render("Market cap"))
	b.WriteString(m.styles.value.Render(formatEth(m.projection.MarketCapWei)))
	if usd := formatUsd(m.projection.MarketCapUsd); usd != "" {
		b.WriteString(m.styles.muted.Render("  " + usd))
	}
	b.WriteString("\n")
	b.WriteString(m.styles.label.Render("Swap fee"))
	b.WriteString(m.styles.value.Render(formatBps(int64(m.projection.EffectiveFeeBps))))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) quotePanel() string {
	var b strings.Builder
	b.WriteString(m.styles.label.Render("Coins out"))
	b.WriteString(m.styles.value.Render(formatCoins(m.quote.CoinsOut)))
	b.WriteString("\n")
	b.WriteString(m.styles.label.Render("Min after slippage"))
	b.WriteString(m.styles.value.Render(formatCoins(m.quote.MinCoinsOut)))
	b.WriteString("\n")
	b.WriteString(m.styles.label.Render("Charged"))
	b.WriteString(m.styles.value.Render(formatEth(m.quote.AmountInWei)))
	b.WriteString("\n")
	b.WriteString(m.styles.label.Render("Price impact"))
	b.WriteString(impactStyle(m.quote.PriceImpactBps).Render(formatBps(m.quote.PriceImpactBps)))
	return b.String()
}

func parseEthBudget(raw string) (*big.Int, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	wei := amount.Mul(decimal.New(1, 18))
	if !wei.IsInteger() || !wei.IsPositive() {
		return nil, errors.New("budget must be a positive wei-aligned ETH amount")
	}
	return wei.BigInt(), nil
}
