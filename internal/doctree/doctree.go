package doctree

import "strings"

// DocTree is the root of a parsed document.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Pages    int        // Page count when the format has pages, else 0
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Text     string     // Text content of this node (may be empty for container nodes)
	Page     int        // Source page (0 if N/A)
	Children []*DocNode // Subsections
}

// Text flattens the tree into plain text in reading order. Headings and
// text blocks are separated by blank lines.
func (t *DocTree) Text() string {
	var sb strings.Builder
	var walk func(nodes []*DocNode)
	walk = func(nodes []*DocNode) {
		for _, n := range nodes {
			for _, part := range []string{n.Title, n.Text} {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				if sb.Len() > 0 {
					sb.WriteString("\n\n")
				}
				sb.WriteString(part)
			}
			walk(n.Children)
		}
	}
	walk(t.Children)
	return sb.String()
}

// WordCount counts whitespace-separated words across the tree.
func (t *DocTree) WordCount() int {
	return len(strings.Fields(t.Text()))
}
