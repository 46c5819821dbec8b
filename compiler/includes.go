package compiler

import (
	"strings"

	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
)

type visitState int

const (
	stateUnvisited visitState = iota
	stateVisiting
	stateDone
)

// validateIncludeGraph walks every source's include edges with a depth-first
// search, failing INCLUDE_NOT_FOUND for a dangling include and INCLUDE_CYCLE
// (reporting the path stack) for a cycle.
func validateIncludeGraph(sources map[string]*sourceFile) error {
	state := make(map[string]visitState, len(sources))
	var stack []string

	var visit func(p string) error
	visit = func(p string) error {
		switch state[p] {
		case stateDone:
			return nil
		case stateVisiting:
			cyclePath := append(append([]string{}, stack...), p)
			return scriptlangerr.Newf("INCLUDE_CYCLE", "include cycle detected: %s", strings.Join(cyclePath, " -> "))
		}
		state[p] = stateVisiting
		stack = append(stack, p)

		sf := sources[p]
		for _, rawInclude := range sf.includes {
			resolved := resolveIncludePath(p, rawInclude)
			if _, ok := sources[resolved]; !ok {
				return scriptlangerr.Newf("INCLUDE_NOT_FOUND", "file %q includes %q which does not exist (resolved to %q)", p, rawInclude, resolved)
			}
			if err := visit(resolved); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		state[p] = stateDone
		return nil
	}

	for _, p := range sourcePaths(sources) {
		if err := visit(p); err != nil {
			return err
		}
	}
	return nil
}

// collectReachableFiles returns the set of files reachable from start via
// the include graph, including start itself, via a stack-based traversal.
func collectReachableFiles(start string, sources map[string]*sourceFile) map[string]bool {
	reachable := map[string]bool{start: true}
	stack := []string{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		sf, ok := sources[cur]
		if !ok {
			continue
		}
		for _, rawInclude := range sf.includes {
			resolved := resolveIncludePath(cur, rawInclude)
			if !reachable[resolved] {
				reachable[resolved] = true
				stack = append(stack, resolved)
			}
		}
	}
	return reachable
}
