package agent

import (
	"fmt"
	"sort"
	"strings"
)

const defaultSystemPrompt = `You are Epigraph, a backlog assistant. You help the user organize work into
epics, tasks and subtasks on a shared board, and you answer questions about it.
Use the available tools to read and change the board instead of guessing its
state. Keep replies short and concrete.`

// PromptContext holds dynamic context for prompt composition.
type PromptContext struct {
	CustomInstructions string            // from config
	ToolDescriptions   map[string]string // tool name → description
}

// ComposeSystemPrompt builds the system prompt from the base prompt plus the
// dynamic layers.
func ComposeSystemPrompt(pctx PromptContext) string {
	sections := []string{defaultSystemPrompt}

	if pctx.CustomInstructions != "" {
		sections = append(sections, "## Additional Instructions\n\n"+pctx.CustomInstructions)
	}

	if len(pctx.ToolDescriptions) > 0 {
		names := make([]string, 0, len(pctx.ToolDescriptions))
		for name := range pctx.ToolDescriptions {
			names = append(names, name)
		}
		sort.Strings(names)

		var sb strings.Builder
		sb.WriteString("## Available Tools\n\n")
		sb.WriteString("You have access to the following tools:\n")
		for _, name := range names {
			if desc := pctx.ToolDescriptions[name]; desc != "" {
				sb.WriteString(fmt.Sprintf("- **%s**: %s\n", name, desc))
			} else {
				sb.WriteString(fmt.Sprintf("- **%s**\n", name))
			}
		}
		sections = append(sections, strings.TrimRight(sb.String(), "\n"))
	}

	return strings.Join(sections, "\n\n")
}
