package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hiddenpath/relay/core"
)

// finishReasons is the static lookup table from Gemini finish reasons to
// the neutral vocabulary. Unmapped reasons pass through lower-cased.
var finishReasons = map[string]core.FinishReason{
	"STOP":       core.FinishStop,
	"MAX_TOKENS": core.FinishLength,
	"SAFETY":     core.FinishContentFilter,
	"RECITATION": core.FinishContentFilter,
}

// mapFinishReason normalizes a Gemini finish reason.
func mapFinishReason(reason string) core.FinishReason {
	if r, ok := finishReasons[reason]; ok {
		return r
	}
	return core.FinishReason(strings.ToLower(reason))
}

// buildBody creates the generateContent request body from a neutral
// request. System messages are relocated into the systemInstruction slot;
// assistant turns take the "model" role. Caller-supplied Extra entries are
// merged last.
func buildBody(req *core.Request) map[string]any {
	system, contents := mapContents(req.Messages)

	body := map[string]any{
		"contents": contents,
	}
	if system != "" {
		body["systemInstruction"] = map[string]any{
			"parts": []map[string]any{{"text": system}},
		}
	}

	genConfig := map[string]any{}
	if req.Temperature != nil {
		genConfig["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil {
		genConfig["maxOutputTokens"] = *req.MaxTokens
	}
	if len(genConfig) > 0 {
		body["generationConfig"] = genConfig
	}

	for k, v := range req.Extra {
		body[k] = v
	}

	return body
}

// mapContents converts neutral messages to Gemini contents. System
// messages are extracted into a single instruction string.
func mapContents(msgs []core.Message) (system string, contents []map[string]any) {
	var systemParts []string

	for _, msg := range msgs {
		switch msg.Role {
		case core.RoleSystem:
			systemParts = append(systemParts, msg.Content)

		case core.RoleUser:
			contents = append(contents, map[string]any{
				"role":  "user",
				"parts": mapUserParts(msg),
			})

		case core.RoleAssistant:
			var parts []map[string]any
			if msg.Content != "" {
				parts = append(parts, map[string]any{"text": msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, map[string]any{
					"functionCall": map[string]any{
						"name": tc.Name,
						"args": tc.Arguments,
					},
				})
			}
			if len(parts) > 0 {
				contents = append(contents, map[string]any{
					"role":  "model",
					"parts": parts,
				})
			}

		case core.RoleTool:
			// Gemini matches tool results by function name, carried here in
			// the block's ToolCallID.
			var parts []map[string]any
			for _, block := range msg.Blocks {
				if block.Type != core.BlockToolResult {
					continue
				}
				parts = append(parts, map[string]any{
					"functionResponse": map[string]any{
						"name": block.ToolCallID,
						"response": map[string]any{
							"result": block.Result,
						},
					},
				})
			}
			if len(parts) > 0 {
				contents = append(contents, map[string]any{
					"role":  "user",
					"parts": parts,
				})
			}
		}
	}

	if len(systemParts) > 0 {
		system = strings.Join(systemParts, "\n\n")
	}
	return system, contents
}

// mapUserParts converts a user message into Gemini parts.
func mapUserParts(msg core.Message) []map[string]any {
	if len(msg.Blocks) == 0 {
		return []map[string]any{{"text": msg.Content}}
	}

	parts := make([]map[string]any, 0, len(msg.Blocks))
	for _, block := range msg.Blocks {
		switch block.Type {
		case core.BlockText:
			parts = append(parts, map[string]any{"text": block.Text})
		case core.BlockImage, core.BlockAudio:
			if strings.HasPrefix(block.URL, "data:") {
				mimeType, data := parseDataURL(block.URL)
				parts = append(parts, map[string]any{
					"inlineData": map[string]any{
						"mimeType": mimeType,
						"data":     data,
					},
				})
			} else {
				parts = append(parts, map[string]any{
					"fileData": map[string]any{
						"mimeType": block.MIMEType,
						"fileUri":  block.URL,
					},
				})
			}
		}
	}
	return parts
}

// parseDataURL extracts mime type and base64 data from a data URL.
// Format: data:mime/type;base64,<data>
func parseDataURL(dataURL string) (mimeType, data string) {
	rest := strings.TrimPrefix(dataURL, "data:")

	commaIdx := strings.Index(rest, ",")
	if commaIdx == -1 {
		return "", ""
	}

	metadata := rest[:commaIdx]
	data = rest[commaIdx+1:]

	if parts := strings.Split(metadata, ";"); len(parts) > 0 {
		mimeType = parts[0]
	}
	return mimeType, data
}

// mapCandidate extracts output text and tool calls from the first
// candidate. Gemini does not assign tool-call ids, so stable synthetic
// ids are generated per response.
func mapCandidate(candidate geminiCandidate) (output string, toolCalls []core.ToolCall) {
	var textParts []string
	toolCallIndex := 0

	for _, part := range candidate.Content.Parts {
		if part.Thought != nil && *part.Thought {
			continue
		}
		if part.Text != "" {
			textParts = append(textParts, part.Text)
		}
		if part.FunctionCall != nil {
			tc := core.ToolCall{
				ID:   fmt.Sprintf("call_%d", toolCallIndex),
				Name: part.FunctionCall.Name,
			}
			if json.Valid(part.FunctionCall.Args) {
				tc.Arguments = part.FunctionCall.Args
			} else {
				tc.Arguments = json.RawMessage(`{}`)
				tc.RawArguments = string(part.FunctionCall.Args)
			}
			toolCalls = append(toolCalls, tc)
			toolCallIndex++
		}
	}

	return strings.Join(textParts, ""), toolCalls
}

// mapUsage converts Gemini usage metadata. The reported total is trusted
// when present; otherwise it is computed.
func mapUsage(u *geminiUsage) core.Usage {
	if u == nil {
		return core.Usage{}
	}
	total := u.TotalTokenCount
	if total == 0 {
		total = u.PromptTokenCount + u.CandidatesTokenCount
	}
	return core.Usage{
		InputTokens:  u.PromptTokenCount,
		OutputTokens: u.CandidatesTokenCount,
		TotalTokens:  total,
	}
}
