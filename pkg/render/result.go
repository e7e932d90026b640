package render

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/dskvich/classifier-bot/pkg/domain"
	"github.com/samber/lo"
)

const (
	confidenceBarWidth = 20
	chartBarWidth      = 16

	barFilled = "█"
	barEmpty  = "░"
)

// Palette colours chart bars by position, cycling when there are more classes.
var Palette = []string{"🟩", "🟦", "🟨", "🟥", "🟪", "🟫", "🟧", "⬛"}

func PaletteColor(index int) string {
	return Palette[index%len(Palette)]
}

// Bar draws a horizontal bar of width cells filled in proportion to pct (0-100).
func Bar(pct float64, width int) string {
	pct = math.Max(0, math.Min(100, pct))
	filled := int(math.Round(pct / 100 * float64(width)))
	return strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, width-filled)
}

// Result renders a prediction. A nil result renders as an empty string.
func Result(r *domain.PredictionResult) string {
	if r == nil {
		return ""
	}

	var sb strings.Builder

	sb.WriteString("✅ <b>Result</b>\n\n")
	fmt.Fprintf(&sb, "Predicted class: <b>%s</b>\n", escape(r.PredictedClass))
	fmt.Fprintf(&sb, "Confidence: <code>%s</code> %.2f%%\n", Bar(r.Confidence, confidenceBarWidth), r.Confidence)
	fmt.Fprintf(&sb, "⏱ Processing time: %.3fs", r.ProcessingTime)

	if len(r.Probabilities) > 0 {
		sb.WriteString("\n\n<b>All class probabilities:</b>\n")
		sb.WriteString(strings.Join(ChartLines(r.Probabilities), "\n"))
	}

	return sb.String()
}

// ChartLines renders one bar per class in the order the classes were received.
func ChartLines(probs domain.Probabilities) []string {
	labelWidth := lo.Max(lo.Map(probs, func(p domain.ClassProbability, _ int) int {
		return utf8.RuneCountInString(p.Class)
	}))

	return lo.Map(probs, func(p domain.ClassProbability, i int) string {
		return fmt.Sprintf("%s <code>%s %s</code> %.2f%%",
			PaletteColor(i),
			escape(padRight(p.Class, labelWidth)),
			Bar(p.Percent, chartBarWidth),
			p.Percent,
		)
	})
}

func padRight(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
