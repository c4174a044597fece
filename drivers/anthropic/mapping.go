package anthropic

import (
	"strings"

	"github.com/hiddenpath/relay/core"
)

// defaultMaxTokens is applied when the caller omits MaxTokens.
// Anthropic requires max_tokens on every request.
const defaultMaxTokens = 1024

// stopReasons is the static lookup table from Anthropic stop reasons to
// the neutral vocabulary. Unmapped reasons pass through lower-cased.
var stopReasons = map[string]core.FinishReason{
	"end_turn":      core.FinishStop,
	"stop_sequence": core.FinishStop,
	"max_tokens":    core.FinishLength,
	"tool_use":      core.FinishToolCalls,
	"refusal":       core.FinishContentFilter,
}

// mapStopReason normalizes an Anthropic stop reason.
func mapStopReason(reason string) core.FinishReason {
	if r, ok := stopReasons[reason]; ok {
		return r
	}
	return core.FinishReason(strings.ToLower(reason))
}

// buildBody creates the Messages API request body from a neutral request.
// System-role messages are relocated into the dedicated "system" field,
// since Anthropic does not accept "system" as a conversational role.
// Caller-supplied Extra entries are merged last.
func buildBody(req *core.Request, stream bool) map[string]any {
	system, messages := mapMessages(req.Messages)

	maxTokens := defaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	body := map[string]any{
		"model":      string(req.Model),
		"messages":   messages,
		"max_tokens": maxTokens,
	}
	if system != "" {
		body["system"] = system
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if stream {
		body["stream"] = true
	}

	for k, v := range req.Extra {
		body[k] = v
	}

	return body
}

// mapMessages converts neutral messages to the Anthropic shape. System
// messages are extracted into a single instruction string; other roles
// become content-block messages.
func mapMessages(msgs []core.Message) (system string, messages []map[string]any) {
	var systemParts []string

	for _, msg := range msgs {
		switch msg.Role {
		case core.RoleSystem:
			systemParts = append(systemParts, msg.Content)

		case core.RoleTool:
			// Tool results travel as user messages with tool_result blocks.
			var content []map[string]any
			for _, block := range msg.Blocks {
				if block.Type != core.BlockToolResult {
					continue
				}
				content = append(content, map[string]any{
					"type":        "tool_result",
					"tool_use_id": block.ToolCallID,
					"content":     block.Result,
					"is_error":    block.IsError,
				})
			}
			if len(content) > 0 {
				messages = append(messages, map[string]any{
					"role":    "user",
					"content": content,
				})
			}

		case core.RoleAssistant:
			var content []map[string]any
			if msg.Content != "" {
				content = append(content, map[string]any{
					"type": "text",
					"text": msg.Content,
				})
			}
			for _, tc := range msg.ToolCalls {
				content = append(content, map[string]any{
					"type":  "tool_use",
					"id":    tc.ID,
					"name":  tc.Name,
					"input": tc.Arguments,
				})
			}
			if len(content) > 0 {
				messages = append(messages, map[string]any{
					"role":    "assistant",
					"content": content,
				})
			}

		case core.RoleUser:
			messages = append(messages, map[string]any{
				"role":    "user",
				"content": mapUserContent(msg),
			})
		}
	}

	if len(systemParts) > 0 {
		system = strings.Join(systemParts, "\n\n")
	}
	return system, messages
}

// mapUserContent converts a user message into Anthropic content blocks.
func mapUserContent(msg core.Message) []map[string]any {
	if len(msg.Blocks) == 0 {
		return []map[string]any{{"type": "text", "text": msg.Content}}
	}

	content := make([]map[string]any, 0, len(msg.Blocks))
	for _, block := range msg.Blocks {
		switch block.Type {
		case core.BlockText:
			content = append(content, map[string]any{
				"type": "text",
				"text": block.Text,
			})
		case core.BlockImage:
			content = append(content, map[string]any{
				"type": "image",
				"source": map[string]any{
					"type": "url",
					"url":  block.URL,
				},
			})
		}
	}
	return content
}

// mapUsage converts Anthropic usage counts; the API never reports a total,
// so it is always computed.
func mapUsage(u anthropicUsage) core.Usage {
	return core.Usage{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		TotalTokens:  u.InputTokens + u.OutputTokens,
	}
}
