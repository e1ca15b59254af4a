package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapNotification(t *testing.T) {
	tests := []struct {
		name    string
		update  sessionUpdate
		want    Event
		wantOK  bool
	}{
		{
			name:   "agent_message_chunk",
			update: sessionUpdate{Type: "agent_message_chunk", Content: &promptContentBlock{Type: "text", Text: "hello"}},
			want:   TextDeltaEvent{Text: "hello", Stream: "output"},
			wantOK: true,
		},
		{
			name:   "agent_message_chunk without content",
			update: sessionUpdate{Type: "agent_message_chunk"},
			want:   TextDeltaEvent{Text: "", Stream: "output"},
			wantOK: true,
		},
		{
			name:   "tool_call with title",
			update: sessionUpdate{Type: "tool_call", Title: "read_file"},
			want:   ToolCallEvent{Text: "read_file"},
			wantOK: true,
		},
		{
			name:   "tool_call without title",
			update: sessionUpdate{Type: "tool_call"},
			want:   ToolCallEvent{Text: "tool"},
			wantOK: true,
		},
		{
			name:   "tool_call_update",
			update: sessionUpdate{Type: "tool_call_update", ToolCallID: "call-1", Status: "completed"},
			want:   StatusEvent{Text: "tool call-1: completed"},
			wantOK: true,
		},
		{
			name:   "unknown update type is dropped",
			update: sessionUpdate{Type: "plan_update"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := mapNotification(tt.update)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
