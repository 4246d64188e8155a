package types

// Receiver is the delivery contact snapshot captured at checkout. Orders copy
// it so later profile edits never rewrite history.
type Receiver struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Note    string `json:"note,omitempty"`
}
