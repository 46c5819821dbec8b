package engine

import (
	"sort"

	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
	"github.com/scriptlang/scriptlang/value"
)

// SnapshotContinuation is the wire form of ContinuationFrame.
type SnapshotContinuation struct {
	ResumeFrameID int64             `json:"resumeFrameId"`
	NextNodeIndex int               `json:"nextNodeIndex"`
	RefBindings   map[string]string `json:"refBindings"`
}

// SnapshotFrame is the wire form of one RuntimeFrame, matching sl-core's
// SnapshotFrameV3 field set and camelCase naming.
type SnapshotFrame struct {
	FrameID            int64                       `json:"frameId"`
	GroupID            string                      `json:"groupId"`
	NodeIndex          int                         `json:"nodeIndex"`
	Scope              map[string]value.SlValue    `json:"scope"`
	VarTypes           map[string]value.ScriptType `json:"varTypes"`
	Completion         string                      `json:"completion"`
	ScriptRoot         bool                        `json:"scriptRoot"`
	ReturnContinuation *SnapshotContinuation       `json:"returnContinuation,omitempty"`
	ScriptName         string                      `json:"scriptName"`
}

// SnapshotPendingBoundary is the wire form of PendingBoundaryV3. It omits
// FrameID: a pending boundary always belongs to the last entry of
// RuntimeFrames, matching sl-core's PendingBoundaryV3 (which carries no
// frame id of its own).
type SnapshotPendingBoundary struct {
	IsChoice bool `json:"isChoice"`

	NodeID string `json:"nodeId"`

	Options    []ChoiceItem `json:"items,omitempty"`
	PromptText string       `json:"promptText,omitempty"`

	TargetVar   string `json:"targetVar,omitempty"`
	InputPrompt string `json:"inputPrompt,omitempty"`
	DefaultText string `json:"defaultText,omitempty"`
}

// Snapshot is the wire form of SnapshotV3: schema-versioned, self-contained
// state a store can persist and later feed back into Resume.
type Snapshot struct {
	SchemaVersion      string                     `json:"schemaVersion"`
	CompilerVersion    string                     `json:"compilerVersion"`
	RuntimeFrames      []SnapshotFrame            `json:"runtimeFrames"`
	RngState           uint32                     `json:"rngState"`
	PendingBoundary    SnapshotPendingBoundary    `json:"pendingBoundary"`
	OnceStateByScript  map[string][]string        `json:"onceStateByScript"`
	// Ended marks a snapshot taken after the engine reached End (spec.md
	// §4.6: "Snapshot is only valid at a boundary pause ... OR when cleanly
	// ended"). An ended snapshot carries no runtime frames and no pending
	// boundary; Resume restores straight back into the ended state rather
	// than rebinding a boundary to a (nonexistent) top frame.
	Ended bool `json:"ended,omitempty"`
}

func completionToWire(c CompletionKind) string {
	switch c {
	case CompletionWhileBody:
		return "whileBody"
	case CompletionResumeAfterChild:
		return "resumeAfterChild"
	default:
		return "none"
	}
}

// snapshotOnceState renders e.onceStateByScript's set-of-keys-per-script into
// the wire form's sorted-slice-per-script shape, shared by both the
// boundary-pause and ended branches of Snapshot.
func (e *Engine) snapshotOnceState() map[string][]string {
	onceState := make(map[string][]string, len(e.onceStateByScript))
	for scriptName, set := range e.onceStateByScript {
		keys := make([]string, 0, len(set))
		for k := range set {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		onceState[scriptName] = keys
	}
	return onceState
}

// restoreOnceState expands the wire form's sorted-slice-per-script shape
// back into e.onceStateByScript's set-of-keys-per-script shape, shared by
// both the boundary-pause and ended branches of Resume.
func restoreOnceState(wire map[string][]string) map[string]map[string]bool {
	onceState := make(map[string]map[string]bool, len(wire))
	for scriptName, keys := range wire {
		set := make(map[string]bool, len(keys))
		for _, k := range keys {
			set[k] = true
		}
		onceState[scriptName] = set
	}
	return onceState
}

func completionFromWire(s string) CompletionKind {
	switch s {
	case "whileBody":
		return CompletionWhileBody
	case "resumeAfterChild":
		return CompletionResumeAfterChild
	default:
		return CompletionNone
	}
}

// Snapshot captures the engine's full runtime state. Per spec.md §4.6,
// snapshot is valid at a boundary pause or once the engine has cleanly
// ended; every other state (before Start, after Start but before the first
// boundary, or right after NextOutput returned Text) fails with
// ENGINE_SNAPSHOT_NO_BOUNDARY. No snapshot.rs survived; this encoding is grounded on the
// struct shape alone.
func (e *Engine) Snapshot() (Snapshot, error) {
	if e.pendingBoundary == nil && !e.ended {
		return Snapshot{}, scriptlangerr.New("ENGINE_SNAPSHOT_NO_BOUNDARY", "Snapshot requires the engine to be paused at a choice or input boundary, or ended.")
	}

	onceState := e.snapshotOnceState()

	if e.ended {
		return Snapshot{
			SchemaVersion:     SnapshotSchemaV3,
			CompilerVersion:   e.compilerVersion,
			RuntimeFrames:     nil,
			RngState:          e.rngState,
			PendingBoundary:   SnapshotPendingBoundary{},
			OnceStateByScript: onceState,
			Ended:             true,
		}, nil
	}

	frames := make([]SnapshotFrame, len(e.frames))
	for i, f := range e.frames {
		var continuation *SnapshotContinuation
		if f.ReturnContinuation != nil {
			continuation = &SnapshotContinuation{
				ResumeFrameID: int64(f.ReturnContinuation.ResumeFrameID),
				NextNodeIndex: f.ReturnContinuation.NextNodeIndex,
				RefBindings:   f.ReturnContinuation.RefBindings,
			}
		}
		frames[i] = SnapshotFrame{
			FrameID:            int64(f.FrameID),
			GroupID:            f.GroupID,
			NodeIndex:          f.NodeIndex,
			Scope:              f.Scope,
			VarTypes:           f.VarTypes,
			Completion:         completionToWire(f.Completion),
			ScriptRoot:         f.ScriptRoot,
			ReturnContinuation: continuation,
			ScriptName:         f.ScriptName,
		}
	}

	boundary := SnapshotPendingBoundary{
		IsChoice:    e.pendingBoundary.IsChoice,
		NodeID:      e.pendingBoundary.NodeID,
		Options:     e.pendingBoundary.Options,
		PromptText:  e.pendingBoundary.PromptText,
		TargetVar:   e.pendingBoundary.TargetVar,
		InputPrompt: e.pendingBoundary.InputPrompt,
		DefaultText: e.pendingBoundary.DefaultText,
	}

	return Snapshot{
		SchemaVersion:     SnapshotSchemaV3,
		CompilerVersion:   e.compilerVersion,
		RuntimeFrames:     frames,
		RngState:          e.rngState,
		PendingBoundary:   boundary,
		OnceStateByScript: onceState,
	}, nil
}

// Resume restores a previously captured Snapshot, validating every group id
// still resolves against the compiled bundle this Engine was built with
// (ENGINE_GROUP_NOT_FOUND), matching the invariant exercised by
// control_flow.rs's runtime_errors_cover_break_continue_and_return_args test
// (a snapshot frame rewritten to reference a missing group fails resume).
func (e *Engine) Resume(snapshot Snapshot) error {
	if snapshot.SchemaVersion != SnapshotSchemaV3 {
		return scriptlangerr.Newf("ENGINE_SNAPSHOT_SCHEMA_MISMATCH", "Snapshot schema %q is not supported; expected %q.", snapshot.SchemaVersion, SnapshotSchemaV3)
	}
	if snapshot.CompilerVersion != e.compilerVersion {
		return scriptlangerr.Newf("ENGINE_SNAPSHOT_COMPILER_MISMATCH", "Snapshot was produced by compiler %q; this engine runs %q.", snapshot.CompilerVersion, e.compilerVersion)
	}

	if snapshot.Ended {
		e.frames = nil
		e.pendingBoundary = nil
		e.waitingChoice = false
		e.ended = true
		e.frameCounter = 0
		e.rngState = snapshot.RngState
		e.onceStateByScript = restoreOnceState(snapshot.OnceStateByScript)
		e.started = true
		return nil
	}

	frames := make([]*RuntimeFrame, len(snapshot.RuntimeFrames))
	for i, f := range snapshot.RuntimeFrames {
		if _, _, err := e.lookupGroup(f.GroupID); err != nil {
			return err
		}
		var continuation *ContinuationFrame
		if f.ReturnContinuation != nil {
			continuation = &ContinuationFrame{
				ResumeFrameID: uint64(f.ReturnContinuation.ResumeFrameID),
				NextNodeIndex: f.ReturnContinuation.NextNodeIndex,
				RefBindings:   f.ReturnContinuation.RefBindings,
			}
		}
		varTypes := f.VarTypes
		if varTypes == nil {
			varTypes = map[string]value.ScriptType{}
		}
		scope := f.Scope
		if scope == nil {
			scope = map[string]value.SlValue{}
		}
		frames[i] = &RuntimeFrame{
			FrameID:            uint64(f.FrameID),
			GroupID:            f.GroupID,
			NodeIndex:          f.NodeIndex,
			Scope:              scope,
			VarTypes:           varTypes,
			Completion:         completionFromWire(f.Completion),
			ScriptRoot:         f.ScriptRoot,
			ReturnContinuation: continuation,
			ScriptName:         f.ScriptName,
		}
	}

	if len(frames) == 0 {
		return scriptlangerr.New("ENGINE_NO_FRAME", "Snapshot has no runtime frames.")
	}

	onceState := restoreOnceState(snapshot.OnceStateByScript)

	pendingFrameID := frames[len(frames)-1].FrameID
	boundary := &PendingBoundary{
		IsChoice:    snapshot.PendingBoundary.IsChoice,
		FrameID:     pendingFrameID,
		NodeID:      snapshot.PendingBoundary.NodeID,
		ScriptName:  frames[len(frames)-1].ScriptName,
		Options:     snapshot.PendingBoundary.Options,
		PromptText:  snapshot.PendingBoundary.PromptText,
		HasPrompt:   snapshot.PendingBoundary.IsChoice,
		TargetVar:   snapshot.PendingBoundary.TargetVar,
		InputPrompt: snapshot.PendingBoundary.InputPrompt,
		DefaultText: snapshot.PendingBoundary.DefaultText,
	}

	var maxFrameID uint64
	for _, f := range frames {
		if f.FrameID > maxFrameID {
			maxFrameID = f.FrameID
		}
	}

	e.frames = frames
	e.pendingBoundary = boundary
	e.waitingChoice = boundary.IsChoice
	e.ended = false
	e.frameCounter = maxFrameID + 1
	e.rngState = snapshot.RngState
	e.onceStateByScript = onceState
	e.started = true
	return nil
}
