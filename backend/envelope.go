package backend

import (
	"encoding/json"

	"github.com/editorialdesk/console/internal/utils"
)

// Envelope is the response contract shared by every backend endpoint. On
// failure the body carries a human-readable Message and may flag Logout
// (forces an immediate client-side logout) or HasSession=false (the
// session-expired flow, distinct from Logout).
type Envelope struct {
	Success    bool            `json:"success"`
	HasSession *bool           `json:"hasSession,omitempty"`
	Logout     bool            `json:"logout,omitempty"`
	Message    string          `json:"message,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// SessionExpired reports whether the backend flagged a stale credential.
func (e *Envelope) SessionExpired() bool {
	return e.HasSession != nil && !*e.HasSession
}

// ConflictingSession reports whether the backend flagged an already-open
// session for this identity on a successful login.
func (e *Envelope) ConflictingSession() bool {
	return e.Success && e.HasSession != nil && utils.Value(e.HasSession)
}

// DecodeData unmarshals the Data payload into out.
func (e *Envelope) DecodeData(out any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, out)
}
