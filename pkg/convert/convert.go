// Package convert turns cleaned HTML into Markdown, the handoff format
// between extraction and chunking.
package convert

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
)

// Converter wraps html-to-markdown with GitHub-flavored extensions so
// tables and strikethrough survive conversion.
type Converter struct {
	conv *md.Converter
}

// NewConverter builds a converter with the default rule set.
func NewConverter() *Converter {
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	return &Converter{conv: conv}
}

// ToMarkdown converts an HTML fragment or document to Markdown and
// normalizes blank-line runs, since the chunker treats blank lines as
// paragraph boundaries.
func (c *Converter) ToMarkdown(html string) (string, error) {
	out, err := c.conv.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert html to markdown: %w", err)
	}
	return normalizeBlankLines(out), nil
}

// normalizeBlankLines collapses runs of blank lines to a single blank line
// and trims trailing whitespace per line.
func normalizeBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(trimmed) == "" {
			if len(out) > 0 && out[len(out)-1] == "" {
				continue
			}
			out = append(out, "")
			continue
		}
		out = append(out, trimmed)
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}

	return strings.Join(out, "\n")
}
