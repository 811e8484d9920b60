package models

// ChatRequest is the body accepted by the send-message endpoint.
type ChatRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is returned for every processed message, including the ones
// whose reply is an apology.
type ChatResponse struct {
	ConversationID  string `json:"conversation_id"`
	Reply           string `json:"reply"`
	MessageReceived string `json:"message_received"`
}

// QueryResult pairs the assistant's reply with the conversation it belongs to.
// ConversationID is empty when the failure happened before a conversation existed.
type QueryResult struct {
	Reply          string
	ConversationID string
}
