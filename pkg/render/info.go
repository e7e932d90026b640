package render

import (
	"fmt"
	"strings"

	"github.com/dskvich/classifier-bot/pkg/domain"
	"github.com/samber/lo"
)

func ModelInfo(info *domain.ModelInfo) string {
	if info == nil {
		return ""
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "🧠 <b>%s</b>\n", escape(lo.CoalesceOrEmpty(info.ModelName, "Model")))
	fmt.Fprintf(&sb, "Accuracy: %.2f%%", info.Accuracy*100)
	if info.InputShape != "" {
		fmt.Fprintf(&sb, "\nInput shape: <code>%s</code>", escape(info.InputShape))
	}
	if len(info.Classes) > 0 {
		fmt.Fprintf(&sb, "\nClasses (%d): %s", len(info.Classes), escape(strings.Join(info.Classes, ", ")))
	}
	if info.Description != "" {
		sb.WriteString("\n\n" + ToHTML(info.Description))
	}

	return sb.String()
}

func Health(h *domain.Health) string {
	if h == nil {
		return "⚠️ Classifier status unknown"
	}

	loaded := lo.Ternary(h.ModelLoaded, "loaded", "not loaded")
	icon := lo.Ternary(h.Status == "healthy" && h.ModelLoaded, "✅", "⚠️")

	return fmt.Sprintf("%s Classifier: <b>%s</b>, model %s", icon, escape(h.Status), loaded)
}

// FileInfo describes a selected file the way the upload form did.
func FileInfo(f domain.ImageFile) string {
	return fmt.Sprintf("<b>File name:</b> %s\n<b>Size:</b> %.2f KB", escape(f.Name), f.SizeKB())
}

func Batch(results []domain.PredictionResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "📦 <b>Batch results (%d)</b>", len(results))
	for i, r := range results {
		fmt.Fprintf(&sb, "\n%d. %s <code>%s</code> → <b>%s</b> %.2f%%",
			i+1,
			PaletteColor(i),
			escape(lo.CoalesceOrEmpty(r.Filename, fmt.Sprintf("image %d", i+1))),
			escape(r.PredictedClass),
			r.Confidence,
		)
	}

	return sb.String()
}
