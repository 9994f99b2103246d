package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/polycopy/engine/internal/domain"
)

// Console implementa ports.Notifier escribiendo a stdout.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
// table=true imprime tablas completas; false, una línea compacta por tick.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// NotifyCopies imprime el resultado de un tick del copier.
// Los ticks sin actividad no imprimen nada.
func (c *Console) NotifyCopies(_ context.Context, replicas []domain.ReplicaTrade, stats domain.CopyStats) error {
	if len(replicas) == 0 {
		return nil
	}

	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "[%s] copier: %d copied, %d skipped, %d failed, %d dup, %d untracked\n",
		now, stats.Copied, stats.Skipped, stats.Failed, stats.Duplicates, stats.Untracked)

	if !c.table {
		for _, r := range replicas {
			fmt.Fprintf(c.out, "  %s %-4s %s %s $%.2f @%.3f (%s)\n",
				statusIcon(r.Status), r.Side, truncate(r.MarketSlug, 35),
				r.Outcome, r.SizeUSD, r.Price, sourceLabel(r))
		}
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Status", "Side", "Market", "Outcome", "Size", "Price", "Source", "Detail")
	for _, r := range replicas {
		detail := r.OrderID
		if r.ErrorMessage != "" {
			detail = truncate(r.ErrorMessage, 40)
		}
		table.Append(
			string(r.Status),
			string(r.Side),
			truncate(r.MarketSlug, 35),
			r.Outcome,
			fmt.Sprintf("$%.2f", r.SizeUSD),
			fmt.Sprintf("%.3f", r.Price),
			sourceLabel(r),
			detail,
		)
	}
	table.Render()
	return nil
}

// NotifyResolutions imprime las réplicas liquidadas en un tick del resolver.
func (c *Console) NotifyResolutions(_ context.Context, resolved []domain.ReplicaTrade, stats domain.ResolveStats) error {
	if len(resolved) == 0 {
		return nil
	}

	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "[%s] resolver: %d wins, %d losses, pnl $%+.2f\n",
		now, stats.Wins, stats.Losses, stats.TotalPnL)

	for _, r := range resolved {
		mark := "LOSS"
		if r.Won() {
			mark = "WIN "
		}
		fmt.Fprintf(c.out, "  %s %-4s %s: picked %s, resolved %s, pnl $%+.2f\n",
			mark, r.Side, truncate(r.MarketSlug, 35),
			r.Outcome, r.ResolvedOutcome, r.PnL)
	}
	return nil
}

// PrintReport imprime el resumen histórico del store (-report).
func (c *Console) PrintReport(stats domain.LifetimeStats) {
	if stats.TotalReplicas == 0 {
		fmt.Fprintln(c.out, "\n  No replicas recorded yet. Run the copier first.")
		return
	}

	fmt.Fprintf(c.out, "\n=== COPY TRADING REPORT ===\n\n")

	table := tablewriter.NewWriter(c.out)
	table.Header("Status", "Count")
	for _, status := range []domain.CopyStatus{
		domain.StatusPaper, domain.StatusPending, domain.StatusFilled,
		domain.StatusSkipped, domain.StatusFailed,
	} {
		if n := stats.ByStatus[status]; n > 0 {
			table.Append(string(status), fmt.Sprintf("%d", n))
		}
	}
	table.Append("total", fmt.Sprintf("%d", stats.TotalReplicas))
	table.Render()

	fmt.Fprintf(c.out, "\n  Resolved:     %d (%d wins / %d losses)\n",
		stats.Resolved, stats.Wins, stats.Losses)
	if stats.Resolved > 0 {
		fmt.Fprintf(c.out, "  Win rate:     %.1f%%\n",
			float64(stats.Wins)/float64(stats.Resolved)*100)
	}
	fmt.Fprintf(c.out, "  Realized PnL: $%+.2f\n\n", stats.RealizedPnL)
}

// --- helpers ---

func statusIcon(s domain.CopyStatus) string {
	switch s {
	case domain.StatusPaper:
		return "[P]"
	case domain.StatusPending:
		return "[~]"
	case domain.StatusFilled:
		return "[F]"
	case domain.StatusSkipped:
		return "[-]"
	case domain.StatusFailed:
		return "[x]"
	}
	return "[?]"
}

func sourceLabel(r domain.ReplicaTrade) string {
	if r.SourceLabel != "" {
		return r.SourceLabel
	}
	if len(r.SourceAddress) > 10 {
		return r.SourceAddress[:10] + "…"
	}
	return r.SourceAddress
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndex(cut, "-"); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}
