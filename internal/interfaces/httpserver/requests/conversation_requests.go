package requests

// ConversationRequest is the body of POST /conversation.
type ConversationRequest struct {
	ProjectID string                 `json:"projectId" example:"proj_123"`
	UserID    string                 `json:"userId" example:"user_42"`
	Message   string                 `json:"message" example:"Let's go with a weekly cadence for the newsletter."`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ListMessagesQuery pages GET /v1/projects/:project_id/messages.
type ListMessagesQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}
