package domain

// ContactCard is the structured hand-off card returned when a turn is
// redirected to an external specialized channel.
type ContactCard struct {
	FullName     string `json:"fullName"`
	PhoneNumber  string `json:"phoneNumber"`
	Organization string `json:"organization,omitempty"`
}

// TurnRequest is one inbound citizen message, channel-agnostic.
type TurnRequest struct {
	Text           string            `json:"text"`
	ConversationID string            `json:"conversationId,omitempty"`
	ContactID      int64             `json:"contactId,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"` // channel plus opaque extras
}

// TurnResult is the uniform per-turn response envelope.
type TurnResult struct {
	OutputText     string         `json:"outputText"`
	Classification Classification `json:"classification,omitempty"`
	TicketFolio    string         `json:"ticketFolio,omitempty"`
	ToolsUsed      []string       `json:"toolsUsed,omitempty"`
	ContactCard    *ContactCard   `json:"contactCard,omitempty"`
	Error          string         `json:"error,omitempty"`
}
