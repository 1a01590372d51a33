package types

// SendMessageRequest carries one user-authored message for the active
// conversation.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessageResponse is the completed turn. Reply is the raw model text
// as persisted; ReplyHTML is the formatted rendering for display.
type SendMessageResponse struct {
	ChatID           string `json:"chat_id,omitempty"`
	Reply            string `json:"reply"`
	ReplyHTML        string `json:"reply_html"`
	UserPending      bool   `json:"user_pending,omitempty"`
	AssistantPending bool   `json:"assistant_pending,omitempty"`
}

// StreamRequest is the first websocket frame: auth token plus the message,
// since a browser websocket cannot set an Authorization header.
type StreamRequest struct {
	Token   string `json:"token"`
	Content string `json:"content"`
}
