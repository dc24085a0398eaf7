package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/seenimoa/ratiodash/internal/config"
)

// Terminal renders markdown for a terminal with glamour. Style "auto"
// follows the terminal background; "dark", "light", "notty", "ascii"
// select a fixed glamour style.
func Terminal(md string, cfg config.RenderConfig) (string, error) {
	opts := []glamour.TermRendererOption{}
	switch style := strings.ToLower(cfg.Style); style {
	case "", "auto":
		opts = append(opts, glamour.WithAutoStyle())
	default:
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	if cfg.WordWrap > 0 {
		opts = append(opts, glamour.WithWordWrap(cfg.WordWrap))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("render: terminal renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render: terminal: %w", err)
	}
	return out, nil
}
