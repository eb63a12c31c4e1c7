package domain

import "time"

// Exchange is a single user or assistant entry in a session's turn history.
// The content is opaque to the core; it is replayed verbatim as context for
// the classification and responder collaborators.
type Exchange struct {
	Role      string    `json:"role"` // "user" | "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ContactLink ties a session (or ticket) to the external contact-center
// platform. Zero values mean "unknown".
type ContactLink struct {
	ContactID      int64  `json:"contactId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	InboxID        int64  `json:"inboxId,omitempty"`
}

// Session holds the routing state for one conversation. A session is pinned
// to at most one active flow at a time; the sub-flow is only meaningful while
// the active flow is the utility-billing domain.
type Session struct {
	ConversationID string
	History        []Exchange
	LastAccess     time.Time
	LastClass      Classification
	ActiveFlow     Classification    // empty = no active flow
	ActiveSubFlow  SubClassification // set only when ActiveFlow = utility billing
	AccountNumber  string            // sticky service-account number
	Contact        ContactLink
}

// InFlow reports whether the session is currently pinned to a flow.
func (s *Session) InFlow() bool { return s.ActiveFlow != "" }

// EnterFlow pins the session to a classification. Setting any flow other
// than utility billing clears the sub-flow.
func (s *Session) EnterFlow(c Classification, sub SubClassification) {
	s.ActiveFlow = c
	s.LastClass = c
	if c == ClassificationUtilityBill {
		s.ActiveSubFlow = sub
	} else {
		s.ActiveSubFlow = SubClassificationNone
	}
}

// LeaveFlow clears the active flow and sub-flow.
func (s *Session) LeaveFlow() {
	s.ActiveFlow = ""
	s.ActiveSubFlow = SubClassificationNone
}

// Append adds an exchange to the history, dropping the oldest entries once
// the cap is exceeded.
func (s *Session) Append(ex Exchange, cap int) {
	s.History = append(s.History, ex)
	if cap > 0 && len(s.History) > cap {
		s.History = s.History[len(s.History)-cap:]
	}
}
