// Command scriptlang-tool is a developer utility that exercises the
// compiler and engine libraries from the command line: compile a directory
// of sources, drive a script against a scripted choose/submit_input fixture,
// and optionally render the resulting transcript to HTML. It is a debugging
// aid, grounded on cmd/duso-tag's small non-interactive invocation style,
// not a player-facing front-end (spec §1 excludes those).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/scriptlang/scriptlang/compiler"
	"github.com/scriptlang/scriptlang/engine"
	"github.com/scriptlang/scriptlang/internal/buildinfo"
	"github.com/scriptlang/scriptlang/internal/render"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "compile":
		err = runCompile(os.Args[2:])
	case "run":
		err = runRun(os.Args[2:])
	case "render":
		err = runRender(os.Args[2:])
	case "version":
		fmt.Println(buildinfo.Describe())
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		slog.Error("scriptlang-tool", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: scriptlang-tool <compile|run|render|version> [flags]")
}

// loadSources walks dir for .script.xml/.defs.xml/.json source files,
// matching compiler.CompileProjectBundle's expected xmlByPath keying
// (paths relative to dir).
func loadSources(dir string) (map[string]string, error) {
	sources := map[string]string{}
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".script.xml") && !strings.HasSuffix(path, ".defs.xml") && !strings.HasSuffix(path, ".json") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		sources[rel] = string(content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load sources from %q: %w", dir, err)
	}
	return sources, nil
}

func runCompile(args []string) error {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	dir := fs.String("dir", ".", "directory of .script.xml/.defs.xml/.json sources")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sources, err := loadSources(*dir)
	if err != nil {
		return err
	}
	bundle, err := compiler.CompileProjectBundle(sources)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	names := make([]string, 0, len(bundle.Scripts))
	for name := range bundle.Scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		script := bundle.Scripts[name]
		fmt.Printf("%s\t%d group(s)\t%d param(s)\n", name, len(script.Groups), len(script.Params))
	}
	return nil
}

// fixtureStep is one scripted interaction step a `run`/`render` invocation
// replays against the engine: exactly one of Choose/Input is set.
type fixtureStep struct {
	Choose *int    `json:"choose"`
	Input  *string `json:"input"`
}

func loadFixture(path string) ([]fixtureStep, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %q: %w", path, err)
	}
	var steps []fixtureStep
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("parse fixture %q: %w", path, err)
	}
	return steps, nil
}

// driveEngine runs eng to completion, replaying fixture steps at each
// choice/input boundary (defaulting to option 0 / empty input once the
// fixture is exhausted), and returns every rendered line in order.
func driveEngine(eng *engine.Engine, entry string, fixture []fixtureStep) ([]render.TranscriptEntry, error) {
	if err := eng.Start(entry, nil); err != nil {
		return nil, fmt.Errorf("start %q: %w", entry, err)
	}

	var entries []render.TranscriptEntry
	step := 0
	for {
		out, err := eng.NextOutput()
		if err != nil {
			return entries, fmt.Errorf("next output: %w", err)
		}
		switch out.Kind {
		case engine.OutputText:
			entries = append(entries, render.TranscriptEntry{ScriptName: entry, Text: out.Text})
		case engine.OutputChoices:
			index := 0
			if step < len(fixture) && fixture[step].Choose != nil {
				index = *fixture[step].Choose
			}
			step++
			chosen := ""
			if index >= 0 && index < len(out.Choices) {
				chosen = out.Choices[index].Text
			}
			entries = append(entries, render.TranscriptEntry{ScriptName: entry, Text: chosen, IsChoice: true})
			if err := eng.Choose(index); err != nil {
				return entries, fmt.Errorf("choose %d: %w", index, err)
			}
		case engine.OutputInput:
			text := ""
			if step < len(fixture) && fixture[step].Input != nil {
				text = *fixture[step].Input
			}
			step++
			entries = append(entries, render.TranscriptEntry{ScriptName: entry, Text: text, IsInput: true})
			if err := eng.SubmitInput(text); err != nil {
				return entries, fmt.Errorf("submit input %q: %w", text, err)
			}
		case engine.OutputEnd:
			return entries, nil
		}
	}
}

func buildEngine(dir string) (*engine.Engine, error) {
	sources, err := loadSources(dir)
	if err != nil {
		return nil, err
	}
	bundle, err := compiler.CompileProjectBundle(sources)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	return engine.New(engine.Options{
		Scripts:                bundle.Scripts,
		GlobalJSON:             bundle.GlobalJSON,
		DefsGlobalDeclarations: bundle.DefsGlobalDeclarations,
		DefsGlobalInitOrder:    bundle.DefsGlobalInitOrder,
		CompilerVersion:        buildinfo.Describe(),
	})
}

func runRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	dir := fs.String("dir", ".", "directory of .script.xml/.defs.xml/.json sources")
	entry := fs.String("entry", "main", "entry script name")
	fixturePath := fs.String("fixture", "", "JSON array of {\"choose\": n} / {\"input\": \"text\"} steps")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fixture, err := loadFixture(*fixturePath)
	if err != nil {
		return err
	}
	eng, err := buildEngine(*dir)
	if err != nil {
		return err
	}
	entries, err := driveEngine(eng, *entry, fixture)
	if err != nil {
		return err
	}
	for _, e := range entries {
		prefix := " "
		if e.IsChoice {
			prefix = "> chose"
		} else if e.IsInput {
			prefix = "> input"
		}
		fmt.Printf("%s %s\n", prefix, e.Text)
	}
	return nil
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	dir := fs.String("dir", ".", "directory of .script.xml/.defs.xml/.json sources")
	entry := fs.String("entry", "main", "entry script name")
	fixturePath := fs.String("fixture", "", "JSON array of {\"choose\": n} / {\"input\": \"text\"} steps")
	out := fs.String("out", "transcript.html", "output HTML file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fixture, err := loadFixture(*fixturePath)
	if err != nil {
		return err
	}
	eng, err := buildEngine(*dir)
	if err != nil {
		return err
	}
	entries, err := driveEngine(eng, *entry, fixture)
	if err != nil {
		return err
	}
	html, err := render.Transcript(entries, render.DefaultOptions())
	if err != nil {
		return fmt.Errorf("render transcript: %w", err)
	}
	if err := os.WriteFile(*out, []byte(html), 0o644); err != nil {
		return fmt.Errorf("write %q: %w", *out, err)
	}
	fmt.Printf("wrote %s\n", *out)
	return nil
}
