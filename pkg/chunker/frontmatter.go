package chunker

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// StripFrontmatter removes a leading `---`-delimited YAML block from the
// document and returns its scalar keys alongside the remaining body. List
// values are joined with commas; nested values are skipped. Anything that
// fails to parse as YAML is treated as ordinary content and left in place.
func StripFrontmatter(markdown string) (map[string]string, string) {
	rest, ok := strings.CutPrefix(markdown, "---\n")
	if !ok {
		rest, ok = strings.CutPrefix(markdown, "---\r\n")
	}
	if !ok {
		return nil, markdown
	}

	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, markdown
	}
	block := rest[:end]

	body := rest[end+len("\n---"):]
	body = strings.TrimPrefix(body, "\r")
	body = strings.TrimPrefix(body, "\n")

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(block), &raw); err != nil || raw == nil {
		return nil, markdown
	}

	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			fields[key] = v
		case bool, int, int64, float64:
			fields[key] = fmt.Sprintf("%v", v)
		case []any:
			var parts []string
			for _, item := range v {
				if s, isStr := item.(string); isStr {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				fields[key] = strings.Join(parts, ",")
			}
		}
	}

	return fields, body
}
