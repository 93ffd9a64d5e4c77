// internal/classify/tools.go
package classify

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/user/clawboard/internal/types"
)

// vendorPrefix marks tools injected by a vendor-specific namespace (MCP
// servers). They classify like any other tool but carry a flag so the UI
// can filter them.
const vendorPrefix = "mcp__"

const titleSnippetLen = 100

// toolMeta is what the lookup table derives from a tool name and its
// argument shape: the timeline title/description and the semantic category.
type toolMeta struct {
	Title       string
	Description string
	Type        types.ActivityType
}

type describeFunc func(input map[string]any) toolMeta

// toolTable maps tool names to describers. This is a pure static mapping;
// unknown names fall back to a generic "Using <name>" entry.
var toolTable = map[string]describeFunc{
	"Bash":         describeBash,
	"Read":         describeRead,
	"Write":        describeWrite,
	"Edit":         describeEdit,
	"MultiEdit":    describeEdit,
	"NotebookEdit": describeEdit,
	"Glob":         describeGlob,
	"Grep":         describeGrep,
	"WebFetch":     describeWebFetch,
	"WebSearch":    describeWebSearch,
	"TodoWrite":    describeTodoWrite,
	"Task":         describeTask,
}

// describeTool resolves the display metadata for a tool invocation.
func describeTool(name string, input map[string]any) toolMeta {
	base := strings.TrimPrefix(name, vendorPrefix)
	if fn, ok := toolTable[base]; ok {
		return fn(input)
	}
	return toolMeta{
		Title: "Using " + base,
		Type:  types.ActivityCommand,
	}
}

func describeBash(input map[string]any) toolMeta {
	cmd := stringArg(input, "command")
	if cmd == "" {
		return toolMeta{Title: "Executing command", Type: types.ActivityCommand}
	}
	meta := toolMeta{
		Title:       "Executing command: " + snippet(cmd, titleSnippetLen),
		Description: stringArg(input, "description"),
		Type:        types.ActivityCommand,
	}
	// gh invocations surface as GitHub activity on the timeline.
	if strings.HasPrefix(cmd, "gh ") {
		meta.Title = "Running GitHub command: " + snippet(cmd, titleSnippetLen)
		meta.Type = types.ActivityGithub
	}
	return meta
}

func describeRead(input map[string]any) toolMeta {
	path := stringArg(input, "file_path")
	if path == "" {
		return toolMeta{Title: "Reading file", Type: types.ActivityFileRead}
	}
	return toolMeta{
		Title:       "Reading file: " + filepath.Base(path),
		Description: path,
		Type:        types.ActivityFileRead,
	}
}

func describeWrite(input map[string]any) toolMeta {
	path := stringArg(input, "file_path")
	if path == "" {
		return toolMeta{Title: "Creating file", Type: types.ActivityFileCreate}
	}
	return toolMeta{
		Title:       "Creating file: " + filepath.Base(path),
		Description: path,
		Type:        types.ActivityFileCreate,
	}
}

func describeEdit(input map[string]any) toolMeta {
	path := stringArg(input, "file_path")
	if path == "" {
		path = stringArg(input, "notebook_path")
	}
	if path == "" {
		return toolMeta{Title: "Editing file", Type: types.ActivityFileWrite}
	}
	return toolMeta{
		Title:       "Editing file: " + filepath.Base(path),
		Description: path,
		Type:        types.ActivityFileWrite,
	}
}

func describeGlob(input map[string]any) toolMeta {
	return toolMeta{
		Title: "Searching files: " + snippet(stringArg(input, "pattern"), titleSnippetLen),
		Type:  types.ActivityKnowledge,
	}
}

func describeGrep(input map[string]any) toolMeta {
	return toolMeta{
		Title: "Searching code: " + snippet(stringArg(input, "pattern"), titleSnippetLen),
		Type:  types.ActivityKnowledge,
	}
}

func describeWebFetch(input map[string]any) toolMeta {
	return toolMeta{
		Title: "Fetching: " + snippet(stringArg(input, "url"), titleSnippetLen),
		Type:  types.ActivityKnowledge,
	}
}

func describeWebSearch(input map[string]any) toolMeta {
	return toolMeta{
		Title: "Searching web: " + snippet(stringArg(input, "query"), titleSnippetLen),
		Type:  types.ActivityKnowledge,
	}
}

func describeTodoWrite(input map[string]any) toolMeta {
	return toolMeta{Title: "Updating task list", Type: types.ActivityKnowledge}
}

func describeTask(input map[string]any) toolMeta {
	desc := stringArg(input, "description")
	if desc == "" {
		return toolMeta{Title: "Running subagent", Type: types.ActivityCommand}
	}
	return toolMeta{
		Title: "Running subagent: " + snippet(desc, titleSnippetLen),
		Type:  types.ActivityCommand,
	}
}

// writeTools are the invocations whose completion produces an artifact.
var writeTools = map[string]bool{
	"Write":        true,
	"Edit":         true,
	"MultiEdit":    true,
	"NotebookEdit": true,
}

// readTools are the invocations whose completion updates the current
// document slot.
var readTools = map[string]bool{
	"Read": true,
}

func isWriteTool(name string) bool {
	return writeTools[strings.TrimPrefix(name, vendorPrefix)]
}

func isReadTool(name string) bool {
	return readTools[strings.TrimPrefix(name, vendorPrefix)]
}

func stringArg(input map[string]any, key string) string {
	if input == nil {
		return ""
	}
	s, _ := input[key].(string)
	return s
}

func snippet(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return fmt.Sprintf("%s...", s[:runeBoundary(s, limit)])
}

// runeBoundary backs a byte offset off to the nearest rune start so a cut
// never leaves invalid UTF-8 behind.
func runeBoundary(s string, i int) int {
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
