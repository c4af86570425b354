package deposit

// transactionResponse is the API shape of a deposit/withdrawal record.
type transactionResponse struct {
	ID           string `json:"id"`
	Reference    string `json:"reference"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Type         string `json:"type"`
	Status       string `json:"status"`
	SplitApplied bool   `json:"split_applied"`
	Description  string `json:"description,omitempty"`
	InitiatedAt  string `json:"initiated_at"`
}
