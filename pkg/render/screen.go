package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/dskvich/classifier-bot/pkg/shell"
	"github.com/samber/lo"
)

const (
	title      = "🧠 <b>CNN Image Classifier</b>"
	emptyState = "🖼 Results will appear here\n<i>Upload an image and classify it</i>"
	loading    = "⏳ Processing..."

	historyTimeLayout = "02.01.2006 15:04:05"

	// Keeps a full history screen well under the 4096 character message limit.
	maxFilenameRunes = 32
)

// Screen composes the whole chat view: error banner first, then the result or
// a placeholder, then the history section.
func Screen(st shell.State) string {
	var sb strings.Builder

	sb.WriteString(title)
	if st.ModelInfo != nil {
		fmt.Fprintf(&sb, "\nℹ️ Accuracy: %.2f%%", st.ModelInfo.Accuracy*100)
	}

	if st.Error != "" {
		fmt.Fprintf(&sb, "\n\n❌ %s", escape(st.Error))
	}

	sb.WriteString("\n\n")
	sb.WriteString(lo.Ternary(st.Prediction != nil, Result(st.Prediction), emptyState))

	if st.Loading {
		sb.WriteString("\n\n" + loading)
	}

	sb.WriteString("\n\n" + HistoryHeader(len(st.History)))
	if st.HistoryVisible() {
		sb.WriteString("\n" + HistoryTable(st.HistoryRows()))
	}

	return sb.String()
}

func HistoryHeader(count int) string {
	return fmt.Sprintf("📜 <b>Prediction history (%d)</b>", count)
}

var historyColumns = []string{"#", "Time", "File", "Class", "Confidence"}

// HistoryTable renders rows as a monospace table.
func HistoryTable(rows []shell.HistoryRow) string {
	if len(rows) == 0 {
		return ""
	}

	cells := [][]string{historyColumns}
	for _, r := range rows {
		cells = append(cells, []string{
			fmt.Sprintf("%d", r.Index),
			formatTimestamp(r.Entry.Timestamp),
			truncate(r.Entry.Filename, maxFilenameRunes),
			r.Entry.PredictedClass,
			fmt.Sprintf("%.2f%%", r.Entry.Confidence),
		})
	}

	widths := make([]int, len(historyColumns))
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], len([]rune(c)))
		}
	}

	lines := lo.Map(cells, func(row []string, _ int) string {
		padded := lo.Map(row, func(c string, i int) string {
			return padRight(c, widths[i])
		})
		return strings.TrimRight(strings.Join(padded, "  "), " ")
	})

	return "<pre>" + escape(strings.Join(lines, "\n")) + "</pre>"
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func formatTimestamp(ts string) string {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Format(historyTimeLayout)
		}
	}
	return ts
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
