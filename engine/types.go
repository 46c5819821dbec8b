// Package engine implements the non-recursive frame-stack runtime that
// executes a compiled ir.Bundle: a pull-based step loop producing EngineOutput
// values, deterministic splitmix32 randomness, once-state tracking, and a
// versioned snapshot/resume codec, matching spec.md §5 and grounded on
// original_source/crates/sl-runtime/src/engine/*.
package engine

import (
	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
	"github.com/scriptlang/scriptlang/ir"
	"github.com/scriptlang/scriptlang/value"
)

// CompletionKind tags what should happen when a non-root frame is popped by
// running off the end of its group, matching sl-core's SnapshotCompletion.
type CompletionKind int

const (
	CompletionNone CompletionKind = iota
	CompletionWhileBody
	CompletionResumeAfterChild
)

// ContinuationFrame is stashed on a call's pushed root frame: where to resume
// the caller and which callee scope variables to write back by reference,
// matching sl-core's ContinuationFrame. ref_bindings is a BTreeMap in the
// original, so finishFrame always walks RefBindings in sorted-key order
// rather than relying on Go's unordered map iteration.
type ContinuationFrame struct {
	ResumeFrameID uint64
	NextNodeIndex int
	RefBindings   map[string]string // callee var name -> caller scope path
}

// RuntimeFrame is one entry of the frame stack, matching frame_stack.rs's
// RuntimeFrame and sl-core's SnapshotFrameV3.
type RuntimeFrame struct {
	FrameID            uint64
	GroupID            string
	NodeIndex          int
	Scope              map[string]value.SlValue
	VarTypes           map[string]value.ScriptType
	Completion         CompletionKind
	ScriptRoot         bool
	ReturnContinuation *ContinuationFrame
	ScriptName         string // which ir.ScriptIr this frame's group belongs to
}

// ChoiceItem is one visible, rendered option offered at a choice boundary.
type ChoiceItem struct {
	Index int
	ID    string
	Text  string
}

// PendingBoundary is the in-memory record of why the engine paused: waiting
// on a choice or a text input, matching frame_stack.rs's PendingBoundary enum
// (Choice/Input variants; a nil *PendingBoundary means no boundary pending).
type PendingBoundary struct {
	IsChoice bool

	FrameID    uint64
	NodeID     string
	ScriptName string

	// Choice
	Options    []ChoiceItem
	PromptText string
	HasPrompt  bool

	// Input
	TargetVar   string
	InputPrompt string
	DefaultText string
}

// OutputKind tags the EngineOutput sum type.
type OutputKind int

const (
	OutputText OutputKind = iota
	OutputChoices
	OutputInput
	OutputEnd
)

// EngineOutput is what next_output returns, matching sl-core's EngineOutput.
type EngineOutput struct {
	Kind OutputKind

	Text string

	Choices    []ChoiceItem
	PromptText string
	HasPrompt  bool

	InputPrompt string
	DefaultText string
}

// HostFunctionRegistry lets an embedder expose native functions to scripts,
// matching engine.rs's HostFunctionRegistry trait.
type HostFunctionRegistry interface {
	Call(name string, args []value.SlValue) (value.SlValue, error)
	Names() []string
}

// EmptyHostFunctionRegistry exposes no functions.
type EmptyHostFunctionRegistry struct{}

func (EmptyHostFunctionRegistry) Call(name string, args []value.SlValue) (value.SlValue, error) {
	return value.SlValue{}, scriptlangerr.Newf("ENGINE_FUNCTION_NOT_FOUND", "No host function %q registered.", name)
}
func (EmptyHostFunctionRegistry) Names() []string { return nil }

const (
	DefaultCompilerVersion = "scriptlang-1"
	SnapshotSchemaV3       = "snapshot.v3"
)

// Options configures a new Engine, matching engine.rs's
// runtime_test_support's ScriptLangEngineOptions construction.
type Options struct {
	Scripts                map[string]ir.ScriptIr
	GlobalJSON             map[string]value.SlValue
	DefsGlobalDeclarations map[string]ir.VarDeclaration
	DefsGlobalInitOrder    []string
	HostFunctions          HostFunctionRegistry
	RandomSeed             *uint32
	CompilerVersion        string
}

// groupLookupEntry records which script a given group id belongs to, so
// lookupGroup can resolve a bare group id across the whole compiled bundle.
type groupLookupEntry struct {
	scriptName string
	groupID    string
}

// Engine is the frame-stack runtime over one compiled ir.Bundle, matching
// engine.rs's ScriptLangEngine.
type Engine struct {
	scripts                map[string]ir.ScriptIr
	globalJSON              map[string]value.SlValue
	defsGlobalDeclarations  map[string]ir.VarDeclaration
	defsGlobalInitOrder     []string
	defsGlobalValues        map[string]value.SlValue
	hostFunctions           HostFunctionRegistry
	groupLookup             map[string]groupLookupEntry
	compilerVersion         string

	frames           []*RuntimeFrame
	pendingBoundary  *PendingBoundary
	waitingChoice    bool
	ended            bool
	frameCounter     uint64
	initialRandomSeed uint32
	rngState         uint32
	onceStateByScript map[string]map[string]bool
	started          bool
}
