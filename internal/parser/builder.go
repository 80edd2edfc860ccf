package parser

import (
	"strings"

	"github.com/dgallion1/lexsum/internal/doctree"
)

// treeBuilder nests sections under headings by level. Text between
// headings accumulates on the innermost open section.
type treeBuilder struct {
	root  *doctree.DocNode
	stack []stackEntry
	text  strings.Builder
}

type stackEntry struct {
	node  *doctree.DocNode
	level int
}

func newTreeBuilder(title string) *treeBuilder {
	root := &doctree.DocNode{Title: title}
	return &treeBuilder{root: root, stack: []stackEntry{{node: root, level: 0}}}
}

func (b *treeBuilder) heading(level int, title string) {
	b.flush()
	node := &doctree.DocNode{Title: title}
	// Pop until the top is a shallower section.
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, node)
	b.stack = append(b.stack, stackEntry{node: node, level: level})
}

func (b *treeBuilder) block(t string) {
	if t == "" {
		return
	}
	if b.text.Len() > 0 {
		b.text.WriteString("\n\n")
	}
	b.text.WriteString(t)
}

func (b *treeBuilder) flush() {
	t := strings.TrimSpace(b.text.String())
	b.text.Reset()
	if t == "" {
		return
	}
	top := b.stack[len(b.stack)-1].node
	if top.Text != "" {
		top.Text += "\n\n" + t
	} else {
		top.Text = t
	}
}

// finish attaches the built sections to tree. Text that preceded the
// first heading becomes a leading untitled section.
func (b *treeBuilder) finish(tree *doctree.DocTree) {
	b.flush()
	if b.root.Text != "" {
		tree.Children = append(tree.Children, &doctree.DocNode{Text: b.root.Text})
	}
	tree.Children = append(tree.Children, b.root.Children...)
}
