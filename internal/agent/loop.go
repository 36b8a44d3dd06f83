// Package agent runs the bounded tool-calling conversation loop.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/avezard/epigraph/internal/history"
	"github.com/avezard/epigraph/internal/models"
	"github.com/avezard/epigraph/internal/tools"
)

// DefaultMaxSteps bounds the number of model round-trips per user message.
const DefaultMaxSteps = 6

// exhaustedReply is returned verbatim when the step budget runs out before
// the model produces a final answer.
const exhaustedReply = "I couldn't complete this request within the allowed number of steps. " +
	"Some tool calls may already have taken effect — check the board, then retry or narrow the request."

// Config assembles a Loop.
type Config struct {
	Model        model.ToolCallingChatModel
	Registry     *tools.Registry
	History      *history.Loader // nil = no history
	SystemPrompt string          // "" = composed default
	MaxSteps     int             // 0 = DefaultMaxSteps
	HistoryTurns int
}

// Loop is the conversation engine: it drives the model, executes the tool
// calls it requests, and returns the final reply.
type Loop struct {
	model        model.ToolCallingChatModel
	registry     *tools.Registry
	history      *history.Loader
	systemPrompt string
	maxSteps     int
	historyTurns int
}

// New binds the registry's tools to the model once and returns the loop.
func New(ctx context.Context, cfg Config) (*Loop, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("agent: model is required")
	}
	if cfg.Registry == nil {
		cfg.Registry = tools.NewRegistry()
	}

	bound := cfg.Model
	registered := cfg.Registry.Tools()
	if len(registered) > 0 {
		infos := make([]*schema.ToolInfo, 0, len(registered))
		for _, t := range registered {
			info, err := t.Info(ctx)
			if err != nil {
				return nil, fmt.Errorf("agent: tool info: %w", err)
			}
			infos = append(infos, info)
		}
		var err error
		bound, err = cfg.Model.WithTools(infos)
		if err != nil {
			return nil, fmt.Errorf("agent: bind tools: %w", err)
		}
	}

	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = ComposeSystemPrompt(PromptContext{
			ToolDescriptions: cfg.Registry.AllToolDescriptions(),
		})
	}
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	return &Loop{
		model:        bound,
		registry:     cfg.Registry,
		history:      cfg.History,
		systemPrompt: systemPrompt,
		maxSteps:     maxSteps,
		historyTurns: cfg.HistoryTurns,
	}, nil
}

// HandleUserMessage runs one conversation turn to completion. Tool failures
// are fed back to the model as tool results; model errors are returned to
// the caller. The caller is responsible for persisting the turn.
func (l *Loop) HandleUserMessage(ctx context.Context, text string) (string, error) {
	messages := []*schema.Message{schema.SystemMessage(l.systemPrompt)}
	if l.history != nil {
		messages = append(messages, l.history.Load(ctx, l.historyTurns)...)
	}
	messages = append(messages, schema.UserMessage(text))

	for step := 1; step <= l.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		resp, err := l.model.Generate(ctx, messages)
		if err != nil {
			return "", models.HandleError(err)
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		messages = append(messages, resp)
		for _, tc := range resp.ToolCalls {
			result := l.executeToolCall(ctx, tc)
			messages = append(messages,
				schema.ToolMessage(result, tc.ID, schema.WithToolName(tc.Function.Name)))
		}
		slog.Debug("tool step completed", "step", step, "calls", len(resp.ToolCalls))
	}

	slog.Warn("step budget exhausted", "max_steps", l.maxSteps)
	return exhaustedReply, nil
}

// executeToolCall runs one requested tool and always yields a result string;
// failures become textual results so the model can adjust and retry.
func (l *Loop) executeToolCall(ctx context.Context, tc schema.ToolCall) string {
	name := tc.Function.Name
	out, err := l.registry.Execute(ctx, name, tc.Function.Arguments)
	if err != nil {
		if errors.Is(err, tools.ErrUnknownTool) {
			slog.Warn("model requested unknown tool", "tool", name)
			return fmt.Sprintf("Tool %q is not available. Available tools: %s.",
				name, strings.Join(l.registry.ToolNames(), ", "))
		}
		slog.Warn("tool error recovery: converting error to result", "tool", name, "error", err)
		return formatToolError(name, err)
	}
	if out == "" {
		// OpenAI/Ollama APIs reject tool_result messages with empty content.
		out = "[OK]"
	}
	return out
}

// formatToolError builds the textual error message sent back to the LLM.
func formatToolError(toolName string, err error) string {
	return fmt.Sprintf(
		`[TOOL_ERROR] Tool %q failed: %s
You can retry with different parameters, or inform the user about the issue.`,
		toolName, err,
	)
}
