package evalscript

import (
	"regexp"
	"strings"
)

var nonIdentCharRe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// sanitize replaces every character outside [A-Za-z0-9_] with '_', matching
// the original bridge's deterministic symbol-sanitization rule.
func sanitize(raw string) string {
	return nonIdentCharRe.ReplaceAllString(raw, "_")
}

// DefsNamespaceSymbol returns the synthetic prefix `__sl_defs_ns_<sanitized
// ns>` for a namespace's defs-globals. Callers append `__<name>` to form the
// dot-free identifier a qualified `ns.name` read/write is rewritten to, so it
// lexes as one TokIdent. Since sanitization is lossy, the Host maps that
// identifier back to the qualified name through its own symbol table rather
// than by re-parsing the sanitized text.
func DefsNamespaceSymbol(namespace string) string {
	return "__sl_defs_ns_" + sanitize(namespace)
}

// FunctionSymbol is the synthetic identifier a qualified function call site
// `ns.fn(...)` is rewritten to.
func FunctionSymbol(qualifiedName string) string {
	return "__fn_" + sanitize(qualifiedName)
}

func isIdentCharByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// RewriteSymbols rewrites every occurrence of a qualified name from
// `qualifiedToSymbol` inside source to its synthetic target identifier,
// longest-prefix-first so `a.b.c` is not partially shadowed by a shorter
// registered name `a.b`. A match only fires at an identifier boundary: the
// character to the left must not be an identifier character and must not be
// `.` (so `x.ns.name` doesn't falsely match an inner `ns.name` that's really
// a field access on `x`); the character to the right must not be an
// identifier character and must not be `:` (so `ns.name::thing` — not part
// of this grammar, but guarded per the original bridge regardless — is left
// alone).
func RewriteSymbols(source string, qualifiedToSymbol map[string]string) string {
	if len(qualifiedToSymbol) == 0 {
		return source
	}
	names := make([]string, 0, len(qualifiedToSymbol))
	for name := range qualifiedToSymbol {
		names = append(names, name)
	}
	// Longest-prefix-first: sort descending by length.
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if len(names[j]) > len(names[i]) {
				names[i], names[j] = names[j], names[i]
			}
		}
	}

	out := source
	for _, name := range names {
		target := qualifiedToSymbol[name]
		out = replaceAtBoundaries(out, name, target)
	}
	return out
}

func replaceAtBoundaries(source, name, target string) string {
	var b strings.Builder
	rest := source
	for {
		idx := strings.Index(rest, name)
		if idx < 0 {
			b.WriteString(rest)
			break
		}
		leftOK := idx == 0 || !isIdentCharByte(rest[idx-1]) && rest[idx-1] != '.'
		rightIdx := idx + len(name)
		rightOK := rightIdx >= len(rest) || !isIdentCharByte(rest[rightIdx]) && rest[rightIdx] != ':'

		b.WriteString(rest[:idx])
		if leftOK && rightOK {
			b.WriteString(target)
		} else {
			b.WriteString(name)
		}
		rest = rest[rightIdx:]
	}
	return b.String()
}
