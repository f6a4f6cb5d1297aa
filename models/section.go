package models

// Section is a heading-delimited region of a Markdown document. The content
// includes the heading line itself. Sections are immutable once parsed.
type Section struct {
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
	Level   int    `json:"level" yaml:"level"` // 0 for headingless leading prose, 1-6 otherwise
}
