package controller

import "time"

// DefaultNoticeTTL is how long a notice stays visible.
const DefaultNoticeTTL = 6 * time.Second

// Severity classifies a notice for display.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityError   Severity = "error"
)

// Notice is a transient message for the operator.
type Notice struct {
	Text     string    `json:"message"`
	Severity Severity  `json:"type"`
	PostedAt time.Time `json:"postedAt"`
}

// Expired reports whether the notice has outlived ttl at now.
func (n Notice) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(n.PostedAt) >= ttl
}

// Operator-facing texts.
const (
	msgSceneEvolved  = "Scene evolved successfully"
	msgEditRejected  = "Edit rejected: "
	msgEditFailed    = "Failed to process edit: "
	msgCreateFailed  = "Failed to create character: "
	msgDemoLoaded    = "Demo character loaded successfully!"
	msgDemoFailed    = "Failed to load demo data"
	msgRecapFailed   = "Failed to generate recap"
	msgResetDone     = "System reset complete"
	msgResetFailed   = "Failed to reset system"
	msgImageAttached = "Image generated successfully!"
)
