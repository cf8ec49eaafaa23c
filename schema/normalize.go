package schema

import (
	"strings"
	"unicode"
)

const maxActionIDLength = 128

// ValidateActionPayload rejects text or prompt that is empty or only
// whitespace. The payload itself is delivered as sent.
func ValidateActionPayload(payload ActionPayload) error {
	if strings.TrimSpace(payload.Text) == "" || strings.TrimSpace(payload.Prompt) == "" {
		return ErrInvalidAction
	}
	return nil
}

// NormalizeActionID validates a caller-supplied action id.
// An empty id is valid and means "generate one".
func NormalizeActionID(id ActionID) (ActionID, error) {
	trimmed := strings.TrimSpace(string(id))
	if trimmed == "" {
		return "", nil
	}
	if len(trimmed) > maxActionIDLength {
		return "", ErrInvalidAction
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return "", ErrInvalidAction
		}
	}
	return ActionID(trimmed), nil
}

// NormalizeQuoteText trims quote text and rejects empty input.
func NormalizeQuoteText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrInvalidQuote
	}
	return trimmed, nil
}

// NormalizeTool trims a tool definition and requires a name and prompt.
func NormalizeTool(tool Tool) (Tool, error) {
	tool.ID = ToolID(strings.TrimSpace(string(tool.ID)))
	tool.Name = strings.TrimSpace(tool.Name)
	tool.Prompt = strings.TrimSpace(tool.Prompt)
	if tool.Name == "" || tool.Prompt == "" {
		return Tool{}, ErrInvalidTool
	}
	return tool, nil
}
