package openai

import (
	"strings"

	"github.com/hiddenpath/relay/core"
)

// finishReasons is the static lookup table from OpenAI finish reasons to
// the neutral vocabulary. Unmapped reasons pass through lower-cased.
var finishReasons = map[string]core.FinishReason{
	"stop":           core.FinishStop,
	"length":         core.FinishLength,
	"tool_calls":     core.FinishToolCalls,
	"function_call":  core.FinishToolCalls,
	"content_filter": core.FinishContentFilter,
}

// mapFinishReason normalizes an OpenAI finish reason.
func mapFinishReason(reason string) core.FinishReason {
	if r, ok := finishReasons[reason]; ok {
		return r
	}
	return core.FinishReason(strings.ToLower(reason))
}

// mapMessages converts neutral messages to the OpenAI message shape.
// OpenAI accepts "system" as a conversational role, so no relocation is
// needed; tool result blocks become dedicated "tool" role messages.
func mapMessages(msgs []core.Message) []map[string]any {
	result := make([]map[string]any, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case core.RoleTool:
			for _, block := range msg.Blocks {
				if block.Type != core.BlockToolResult {
					continue
				}
				result = append(result, map[string]any{
					"role":         "tool",
					"tool_call_id": block.ToolCallID,
					"content":      block.Result,
				})
			}

		case core.RoleAssistant:
			m := map[string]any{
				"role":    "assistant",
				"content": msg.Content,
			}
			if len(msg.ToolCalls) > 0 {
				calls := make([]map[string]any, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					calls[i] = map[string]any{
						"id":   tc.ID,
						"type": "function",
						"function": map[string]any{
							"name":      tc.Name,
							"arguments": string(tc.Arguments),
						},
					}
				}
				m["tool_calls"] = calls
			}
			result = append(result, m)

		default:
			result = append(result, map[string]any{
				"role":    string(msg.Role),
				"content": mapContent(msg),
			})
		}
	}
	return result
}

// mapContent returns either a plain string or a content-part array for
// multimodal messages.
func mapContent(msg core.Message) any {
	if len(msg.Blocks) == 0 {
		return msg.Content
	}

	parts := make([]map[string]any, 0, len(msg.Blocks))
	for _, block := range msg.Blocks {
		switch block.Type {
		case core.BlockText:
			parts = append(parts, map[string]any{
				"type": "text",
				"text": block.Text,
			})
		case core.BlockImage:
			parts = append(parts, map[string]any{
				"type":      "image_url",
				"image_url": map[string]any{"url": block.URL},
			})
		case core.BlockAudio:
			parts = append(parts, map[string]any{
				"type": "input_audio",
				"input_audio": map[string]any{
					"data":   block.URL,
					"format": audioFormat(block.MIMEType),
				},
			})
		}
	}
	return parts
}

// audioFormat extracts the format token from an audio MIME type.
func audioFormat(mime string) string {
	if idx := strings.IndexByte(mime, '/'); idx >= 0 {
		return mime[idx+1:]
	}
	return mime
}

// buildBody creates the OpenAI request body from a neutral request.
// Caller-supplied Extra entries are merged last, so they win over
// computed fields.
func buildBody(req *core.Request, stream bool) map[string]any {
	body := map[string]any{
		"model":    string(req.Model),
		"messages": mapMessages(req.Messages),
	}

	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil {
		body["max_tokens"] = *req.MaxTokens
	}
	if stream {
		body["stream"] = true
	}

	for k, v := range req.Extra {
		body[k] = v
	}

	return body
}

// mapUsage converts OpenAI usage counts, computing the total when the
// provider does not report it.
func mapUsage(u openAIUsage) core.Usage {
	total := u.TotalTokens
	if total == 0 {
		total = u.PromptTokens + u.CompletionTokens
	}
	return core.Usage{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
		TotalTokens:  total,
	}
}
