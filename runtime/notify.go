package runtime

import "fmt"

// mapNotification translates a parsed session/update payload into the
// host's event variant, or returns (nil, false) for update kinds the
// adapter does not surface.
func mapNotification(u sessionUpdate) (Event, bool) {
	switch u.Type {
	case "agent_message_chunk":
		text := ""
		if u.Content != nil {
			text = u.Content.Text
		}
		return TextDeltaEvent{Text: text, Stream: "output"}, true

	case "tool_call":
		title := u.Title
		if title == "" {
			title = "tool"
		}
		return ToolCallEvent{Text: title}, true

	case "tool_call_update":
		return StatusEvent{Text: fmt.Sprintf("tool %s: %s", u.ToolCallID, u.Status)}, true

	default:
		return nil, false
	}
}
