// Package render turns ScriptLang's plain-string narrative output into
// presentation formats for authors reviewing a played-through session. It
// sits entirely outside the engine: EngineOutput.Text stays a plain string
// per spec §4.4.6, and rendering is something a caller opts into afterward.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Options configures which goldmark extensions a render pass enables,
// mirroring the tables/strikethrough/footnotes/tasklists toggle map
// builtinMarkdownHTML takes from its script-visible options argument.
type Options struct {
	Tables        bool
	Strikethrough bool
	Footnotes     bool
	TaskLists     bool
}

// DefaultOptions matches builtin_markdown.go's defaults: tables and
// strikethrough on, footnotes and tasklists off.
func DefaultOptions() Options {
	return Options{Tables: true, Strikethrough: true}
}

func (o Options) extensions() []goldmark.Extender {
	var exts []goldmark.Extender
	if o.Tables {
		exts = append(exts, extension.Table)
	}
	if o.Strikethrough {
		exts = append(exts, extension.Strikethrough)
	}
	if o.Footnotes {
		exts = append(exts, extension.Footnote)
	}
	if o.TaskLists {
		exts = append(exts, extension.TaskList)
	}
	return exts
}

// NarrativeText renders one rendered <text>/<choice> string as HTML, treating
// it as a markdown fragment an author may have authored inline (headers,
// emphasis, lists). A boundary's prompt and option text render the same way.
func NarrativeText(raw string, opts Options) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(opts.extensions()...))
	var buf bytes.Buffer
	if err := md.Convert([]byte(raw), &buf); err != nil {
		return "", fmt.Errorf("render narrative text: %w", err)
	}
	return buf.String(), nil
}

// TranscriptEntry is one line of a played-through session, built up by a
// caller driving the engine (NextOutput/Choose/SubmitInput) and handed to
// Transcript for a single rendered document.
type TranscriptEntry struct {
	ScriptName string
	Text       string // narrative text, a rendered choice prompt, or the chosen option's text
	IsChoice   bool
	IsInput    bool
}

// Transcript renders a full session as one HTML document: a heading per
// script transition, a paragraph per text/input entry, and a list per choice
// boundary. Grounded on builtin_markdown.go's per-string goldmark.Convert
// call, generalized to a whole session instead of one string.
func Transcript(entries []TranscriptEntry, opts Options) (string, error) {
	var md strings.Builder
	lastScript := ""
	for _, e := range entries {
		if e.ScriptName != "" && e.ScriptName != lastScript {
			fmt.Fprintf(&md, "## %s\n\n", e.ScriptName)
			lastScript = e.ScriptName
		}
		switch {
		case e.IsChoice:
			fmt.Fprintf(&md, "- %s\n\n", e.Text)
		case e.IsInput:
			fmt.Fprintf(&md, "> %s\n\n", e.Text)
		default:
			fmt.Fprintf(&md, "%s\n\n", e.Text)
		}
	}
	return NarrativeText(md.String(), opts)
}
