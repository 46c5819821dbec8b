// Package xmlsrc turns ScriptLang XML source text into a span-tracked
// element tree and extracts include directives, the parser layer of
// spec.md §4.1. No third-party XML library appears anywhere in the
// retrieved example pack (see DESIGN.md); the standard library's
// encoding/xml decoder, driven token-by-token so each element/text node can
// be stamped with the line/column it started at, is the grounded choice.
package xmlsrc

import (
	"encoding/xml"
	"io"
	"regexp"
	"strings"

	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
)

// Node is either an Element or a Text leaf.
type Node interface{ node() }

// Element is a tag with attributes and ordered children (element and text
// nodes interleaved, matching source order).
type Element struct {
	Name       string
	Attributes map[string]string
	Children   []Node
	Span       scriptlangerr.Span
}

func (*Element) node() {}

// Text is a run of character data. Whitespace-only text nodes are dropped
// during parsing; anything else is preserved verbatim (including internal
// whitespace) per spec §4.1.
type Text struct {
	Value string
	Span  scriptlangerr.Span
}

func (*Text) node() {}

// Document wraps the single required root element.
type Document struct {
	Root *Element
}

var includeDirectiveRe = regexp.MustCompile(`(?m)^\s*<!--\s*include:\s*(.+?)\s*-->\s*$`)

// ParseIncludeDirectives extracts `<!-- include: path -->` comment directives
// from raw source text, trimming each path and dropping empty matches. This
// runs over the raw text directly (not the parsed tree) because comments are
// otherwise discarded by the XML decoder.
func ParseIncludeDirectives(source string) []string {
	matches := includeDirectiveRe.FindAllStringSubmatch(source, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		path := strings.TrimSpace(m[1])
		if path == "" {
			continue
		}
		out = append(out, path)
	}
	return out
}

// ParseDocument parses XML source text into a span-tracked element tree.
// A document with no root element, or malformed XML, fails XML_PARSE_ERROR.
func ParseDocument(source string) (*Document, error) {
	decoder := xml.NewDecoder(strings.NewReader(source))

	lineOffsets := computeLineOffsets(source)

	type frame struct {
		el       *Element
		startOff int64
	}
	var stack []frame
	var root *Element

	for {
		offsetBefore := decoder.InputOffset()
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, scriptlangerr.New("XML_PARSE_ERROR", err.Error())
		}

		switch t := tok.(type) {
		case xml.StartElement:
			attrs := make(map[string]string, len(t.Attr))
			for _, a := range t.Attr {
				attrs[a.Name.Local] = a.Value
			}
			el := &Element{
				Name:       t.Name.Local,
				Attributes: attrs,
				Children:   nil,
				Span:       spanAt(lineOffsets, offsetBefore, offsetBefore),
			}
			if len(stack) > 0 {
				top := stack[len(stack)-1].el
				top.Children = append(top.Children, el)
			}
			stack = append(stack, frame{el: el, startOff: offsetBefore})

		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			top.el.Span = spanAt(lineOffsets, top.startOff, decoder.InputOffset())
			stack = stack[:len(stack)-1]
			if len(stack) == 0 && root == nil {
				root = top.el
			}

		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			value := string(t)
			if strings.TrimSpace(value) == "" {
				continue
			}
			top := stack[len(stack)-1].el
			top.Children = append(top.Children, &Text{
				Value: value,
				Span:  spanAt(lineOffsets, offsetBefore, decoder.InputOffset()),
			})

		case xml.Comment, xml.ProcInst, xml.Directive:
			// Stripped from the tree; include directives are recovered
			// separately by ParseIncludeDirectives over the raw text.
		}
	}

	if root == nil {
		return nil, scriptlangerr.New("XML_PARSE_ERROR", "XML document must contain a root element.")
	}
	return &Document{Root: root}, nil
}

// computeLineOffsets returns the byte offset at which each line (1-indexed)
// begins, used to translate a decoder byte offset into (line,column).
func computeLineOffsets(source string) []int64 {
	offsets := []int64{0}
	for i, ch := range source {
		if ch == '\n' {
			offsets = append(offsets, int64(i)+1)
		}
	}
	return offsets
}

func lineColumnAt(lineOffsets []int64, offset int64) (line, column int) {
	line = 1
	for i := len(lineOffsets) - 1; i >= 0; i-- {
		if lineOffsets[i] <= offset {
			line = i + 1
			column = int(offset-lineOffsets[i]) + 1
			return
		}
	}
	return 1, int(offset) + 1
}

func spanAt(lineOffsets []int64, start, end int64) scriptlangerr.Span {
	sl, sc := lineColumnAt(lineOffsets, start)
	el, ec := lineColumnAt(lineOffsets, end)
	return scriptlangerr.Span{StartLine: sl, StartColumn: sc, EndLine: el, EndColumn: ec}
}

// Elements returns only the Element children of a node, in source order.
func Elements(el *Element) []*Element {
	out := make([]*Element, 0, len(el.Children))
	for _, c := range el.Children {
		if e, ok := c.(*Element); ok {
			out = append(out, e)
		}
	}
	return out
}

// InlineTextContent joins all direct Text children with "\n", matching the
// original compiler's inline_text_content helper (used for <code>/function
// bodies and <var> initializers that may span several text runs).
func InlineTextContent(el *Element) string {
	var parts []string
	for _, c := range el.Children {
		if t, ok := c.(*Text); ok {
			parts = append(parts, t.Value)
		}
	}
	return strings.Join(parts, "\n")
}

// HasElementChildren reports whether el has any Element child.
func HasElementChildren(el *Element) bool {
	for _, c := range el.Children {
		if _, ok := c.(*Element); ok {
			return true
		}
	}
	return false
}
