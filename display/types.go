package display

// Kind tells the display daemon which screen to draw.
type Kind string

const (
	KindStatus   Kind = "status"
	KindResult   Kind = "result"
	KindNotFound Kind = "not_found"
	KindError    Kind = "error"
)

// Payload is the two-line screen shown on the operator panel.
type Payload struct {
	Kind      Kind     `json:"kind"`
	Line1     string   `json:"line1"`
	Line2     string   `json:"line2,omitempty"`
	SKU       string   `json:"sku,omitempty"`
	Quantity  *int     `json:"quantity,omitempty"`
	AttemptID string   `json:"attempt_id,omitempty"`
	Rows      []string `json:"rows"`
	UpdatedAt string   `json:"updated_at,omitempty"`
}
