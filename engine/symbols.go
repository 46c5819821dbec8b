package engine

import (
	"strings"

	"github.com/scriptlang/scriptlang/evalscript"
)

// symbolsForScript builds the qualified-name -> synthetic-identifier table a
// script's expressions and code bodies are rewritten against before parsing,
// and the reverse table GetVariable/SetVariable/CallFunction use to recover
// the original qualified defs-global or function name from a synthetic hit.
// Only entries that are genuinely dotted (namespace-qualified) need rewriting:
// VisibleDefsGlobals/VisibleFunctions also carry bare short-name aliases
// (resolveVisibleDefs's unambiguous-alias rule), and those are already plain
// identifiers the parser handles without help.
func (e *Engine) symbolsForScript(scriptName string) (toSymbol map[string]string, toQualified map[string]string) {
	toSymbol = map[string]string{}
	toQualified = map[string]string{}
	script, ok := e.scripts[scriptName]
	if !ok {
		return toSymbol, toQualified
	}

	for qualified, decl := range script.VisibleDefsGlobals {
		if decl.Name != qualified || !strings.Contains(qualified, ".") {
			continue
		}
		namespace, name := splitQualifiedName(qualified)
		symbol := evalscript.DefsNamespaceSymbol(namespace) + "__" + name
		toSymbol[qualified] = symbol
		toQualified[symbol] = qualified
	}

	for qualified, decl := range script.VisibleFunctions {
		if decl.QualifiedName != qualified || !strings.Contains(qualified, ".") {
			continue
		}
		symbol := evalscript.FunctionSymbol(qualified)
		toSymbol[qualified] = symbol
		toQualified[symbol] = qualified
	}

	return toSymbol, toQualified
}

func splitQualifiedName(qualified string) (namespace, name string) {
	idx := strings.LastIndexByte(qualified, '.')
	if idx < 0 {
		return "", qualified
	}
	return qualified[:idx], qualified[idx+1:]
}

// rewriteForScript applies RewriteSymbols against the given script's
// qualified-name table, turning dotted defs-global reads/writes and
// namespaced function calls into flat identifiers the parser can lex.
func (e *Engine) rewriteForScript(scriptName, source string) string {
	toSymbol, _ := e.symbolsForScript(scriptName)
	return evalscript.RewriteSymbols(source, toSymbol)
}

// resolveSymbolName translates a synthetic identifier produced by
// rewriteForScript back to its original qualified defs-global or function
// name, so GetVariable/SetVariable/CallFunction can resolve it against the
// real declaration table. Returns the name unchanged if it isn't synthetic.
func (e *Engine) resolveSymbolName(scriptName, name string) string {
	_, toQualified := e.symbolsForScript(scriptName)
	if qualified, ok := toQualified[name]; ok {
		return qualified
	}
	return name
}
