package standup

import "time"

// Summary is one generated standup.
// This is the stable public type; internal representations may evolve
// independently without breaking consumers.
type Summary struct {
	Text        string    `json:"text"`
	Range       string    `json:"range"` // "2024-01-12 to 2024-01-15"
	Model       string    `json:"model,omitempty"`
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Warnings    []Warning `json:"warnings,omitempty"`
}

// Warning describes a connector that failed during collection.
type Warning struct {
	Connector string `json:"connector"`
	Kind      string `json:"kind"` // unavailable, auth or other
	Message   string `json:"message"`
}
