package domain

import "time"

// DecisionRecord is the journaled form of a navigation decision.
type DecisionRecord struct {
	ID        string        `json:"id"`
	SessionID string        `json:"sessionId"`
	CallSite  CallSite      `json:"callSite"`
	URL       string        `json:"url"`
	Category  RouteCategory `json:"category"`
	Target    BrowserTarget `json:"target,omitempty"`
	Action    Action        `json:"action"`
	Commands  []CommandKind `json:"commands,omitempty"`
	Reason    string        `json:"reason"`
	At        time.Time     `json:"at"`
}

// TransitionRecord is the journaled form of a lifecycle transition.
type TransitionRecord struct {
	SessionID  string `json:"sessionId"`
	URL        string `json:"url"`
	Transition Transition
}

// AuthCheckResponse is the member server's answer to a session check.
type AuthCheckResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
