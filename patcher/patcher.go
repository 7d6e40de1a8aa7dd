// Package patcher assembles generated source text while recording, for
// every fragment copied from the original file, where in the output it
// landed. The resulting patch list lets diagnostics raised against
// generated code be mapped back to user-written source.
package patcher

import (
	"fmt"
	"strings"

	"github.com/NethermindEth/snplugin/syntax"
)

// Patch maps a span of the generated text back to the original span it was
// copied from.
type Patch struct {
	GenSpan  syntax.Span
	OrigSpan syntax.Span
}

// RewriteNode is a fragment of output text: literal text, a copy of an
// original span, or an ordered sequence of child fragments.
type RewriteNode interface {
	isRewriteNode()
}

type textNode struct {
	text string
}

type copiedNode struct {
	span    syntax.Span
	trimmed bool
}

type modifiedNode struct {
	children []RewriteNode
}

func (textNode) isRewriteNode()     {}
func (copiedNode) isRewriteNode()   {}
func (modifiedNode) isRewriteNode() {}

// Text is a literal fragment with no origin.
func Text(s string) RewriteNode {
	return textNode{text: s}
}

// Copied emits the original text of span verbatim and records a patch.
func Copied(span syntax.Span) RewriteNode {
	return copiedNode{span: span}
}

// Trimmed is Copied with surrounding whitespace removed; the patch covers
// the trimmed region only.
func Trimmed(span syntax.Span) RewriteNode {
	return copiedNode{span: span, trimmed: true}
}

// Modified concatenates child fragments in order.
func Modified(children ...RewriteNode) RewriteNode {
	return modifiedNode{children: children}
}

// Interpolate replaces every `$name$` placeholder in the template with the
// matching fragment. `$$` renders a literal dollar sign. A placeholder
// without a matching fragment is a programming error and panics.
func Interpolate(template string, args map[string]RewriteNode) RewriteNode {
	var children []RewriteNode
	rest := template
	for {
		i := strings.IndexByte(rest, '$')
		if i < 0 {
			break
		}
		if i > 0 {
			children = append(children, textNode{text: rest[:i]})
		}
		rest = rest[i+1:]
		j := strings.IndexByte(rest, '$')
		if j < 0 {
			panic("patcher: unterminated placeholder in template")
		}
		name := rest[:j]
		rest = rest[j+1:]
		if name == "" {
			children = append(children, textNode{text: "$"})
			continue
		}
		node, ok := args[name]
		if !ok {
			panic(fmt.Sprintf("patcher: no fragment for placeholder %q", name))
		}
		children = append(children, node)
	}
	if rest != "" {
		children = append(children, textNode{text: rest})
	}
	return modifiedNode{children: children}
}

// PatchBuilder accumulates generated text and its patch list. It owns both
// exclusively until they are taken by Finish.
type PatchBuilder struct {
	db      *syntax.DB
	buf     strings.Builder
	patches []Patch
}

func NewPatchBuilder(db *syntax.DB) *PatchBuilder {
	return &PatchBuilder{db: db}
}

func (b *PatchBuilder) AddStr(s string) {
	b.buf.WriteString(s)
}

// AddModified appends the rendered fragment tree to the output.
func (b *PatchBuilder) AddModified(node RewriteNode) {
	switch n := node.(type) {
	case textNode:
		b.buf.WriteString(n.text)
	case copiedNode:
		text := b.db.Text(n.span)
		orig := n.span
		if n.trimmed {
			text, orig = b.db.TrimmedText(n.span)
		}
		start := b.buf.Len()
		b.buf.WriteString(text)
		b.patches = append(b.patches, Patch{
			GenSpan:  syntax.Span{Start: start, End: b.buf.Len()},
			OrigSpan: orig,
		})
	case modifiedNode:
		for _, child := range n.children {
			b.AddModified(child)
		}
	}
}

// Finish transfers the generated code and patch list out of the builder.
func (b *PatchBuilder) Finish() (string, []Patch) {
	return b.buf.String(), b.patches
}

// Origin maps an offset in the generated text back to its original span.
// Offsets inside synthesized text have no origin.
func Origin(patches []Patch, offset int) (syntax.Span, bool) {
	for _, patch := range patches {
		if offset >= patch.GenSpan.Start && offset < patch.GenSpan.End {
			return patch.OrigSpan, true
		}
	}
	return syntax.Span{}, false
}
