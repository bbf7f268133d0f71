package domain

// Activity is one entry of the console action log. It never goes over the
// wire protocol; webhooks and the CLI render it as JSON.
type Activity struct {
	Seq        int64  `json:"seq"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	ProjectID  string `json:"project_id"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Actor      string `json:"actor"`
	Payload    string `json:"payload"`
}
