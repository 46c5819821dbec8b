// Package compiler implements spec.md §4.2: source classification, the
// include-graph DAG, <loop> macro expansion, lowering nested control flow
// into flat implicit groups, type/function resolution, and per-script
// visibility — producing the ir.Bundle the engine consumes.
package compiler

import (
	"encoding/json"
	"path"
	"sort"
	"strings"

	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
	"github.com/scriptlang/scriptlang/value"
	"github.com/scriptlang/scriptlang/xmlsrc"
)

type sourceKind int

const (
	kindScriptXML sourceKind = iota
	kindDefsXML
	kindJSON
)

// sourceFile is one parsed input file: its classified kind, the includes it
// declares, and either its parsed XML root or decoded JSON value.
type sourceFile struct {
	path     string
	kind     sourceKind
	includes []string
	xmlRoot  *xmlsrc.Element
	jsonVal  value.SlValue
}

func classify(filePath string) (sourceKind, error) {
	switch {
	case strings.HasSuffix(filePath, ".script.xml"):
		return kindScriptXML, nil
	case strings.HasSuffix(filePath, ".defs.xml"):
		return kindDefsXML, nil
	case strings.HasSuffix(filePath, ".json"):
		return kindJSON, nil
	default:
		return 0, scriptlangerr.Newf("SOURCE_KIND_UNSUPPORTED", "unsupported source file extension: %q", filePath)
	}
}

// parseSources classifies and parses every source in xmlByPath, returning
// them keyed by path with deterministic (sorted) iteration available via
// sourcePaths.
func parseSources(xmlByPath map[string]string) (map[string]*sourceFile, error) {
	out := make(map[string]*sourceFile, len(xmlByPath))
	for filePath, raw := range xmlByPath {
		kind, err := classify(filePath)
		if err != nil {
			return nil, err
		}
		sf := &sourceFile{path: filePath, kind: kind}
		switch kind {
		case kindJSON:
			var decoded any
			if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
				return nil, scriptlangerr.Newf("JSON_PARSE_ERROR", "failed to parse JSON source %q: %v", filePath, err)
			}
			sf.jsonVal = value.FromJSON(decoded)
		default:
			doc, err := xmlsrc.ParseDocument(raw)
			if err != nil {
				return nil, err
			}
			sf.xmlRoot = doc.Root
			sf.includes = xmlsrc.ParseIncludeDirectives(raw)
		}
		out[filePath] = sf
	}
	return out, nil
}

func sourcePaths(sources map[string]*sourceFile) []string {
	paths := make([]string, 0, len(sources))
	for p := range sources {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// resolveIncludePath normalizes an include path relative to the including
// file's virtual directory: "./", "../", backslashes, and repeated slashes
// are all collapsed via path.Clean/path.Join semantics.
func resolveIncludePath(fromFile, includePath string) string {
	normalized := strings.ReplaceAll(includePath, "\\", "/")
	dir := path.Dir(fromFile)
	if dir == "." {
		return path.Clean(normalized)
	}
	return path.Clean(path.Join(dir, normalized))
}

// collectGlobalJSON folds every .json source into one flat symbol map keyed
// by the file's base name without extension, matching the compiler's
// "global JSON" concept (spec §4.2.5's global_json).
func collectGlobalJSON(sources map[string]*sourceFile) (map[string]value.SlValue, error) {
	out := make(map[string]value.SlValue)
	for _, p := range sourcePaths(sources) {
		sf := sources[p]
		if sf.kind != kindJSON {
			continue
		}
		name := jsonSymbolName(p)
		out[name] = sf.jsonVal
	}
	return out, nil
}

func jsonSymbolName(filePath string) string {
	base := path.Base(filePath)
	return strings.TrimSuffix(base, ".json")
}
