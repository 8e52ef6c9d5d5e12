package realtime

import "encoding/json"

// Frame types exchanged over the realtime websocket.
const (
	FrameSubscribe      = "subscribe"
	FrameUnsubscribe    = "unsubscribe"
	FrameMessageCreated = "message.created"
	FrameError          = "error"
)

// Frame is the JSON envelope of every realtime message, in both directions.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SubscribeData is the payload of subscribe and unsubscribe frames.
type SubscribeData struct {
	ThreadID string `json:"thread_id"`
}

// ErrorData is the payload of error frames.
type ErrorData struct {
	Message string `json:"message"`
}

// NewFrame marshals data into a frame of the given type.
func NewFrame(typ string, data any) (Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: typ, Data: raw}, nil
}
