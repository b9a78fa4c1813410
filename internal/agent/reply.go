package agent

import (
	"encoding/json"

	"github.com/samber/lo"
)

// parseChatResponse pulls the reply text and any session id out of a chat response
// body. Reply candidates are probed in a fixed order and only non-empty strings count.
// ok is false when the body is not a JSON object.
func parseChatResponse(raw []byte) (reply, sessionID string, ok bool) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return FallbackReply, "", false
	}

	reply, found := lo.Coalesce(
		choiceContent(data),
		stringField(data, "response"),
		stringField(data, "message"),
		stringField(data, "output"),
	)
	if !found {
		reply = FallbackReply
	}
	return reply, stringField(data, "session_id"), true
}

// choiceContent returns choices[0].message.content.
func choiceContent(data map[string]any) string {
	choices, ok := data["choices"].([]any)
	if !ok || len(choices) == 0 {
		return ""
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return ""
	}
	msg, ok := first["message"].(map[string]any)
	if !ok {
		return ""
	}
	return stringField(msg, "content")
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}
