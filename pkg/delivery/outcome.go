package delivery

// Outcome aggregates the per-recipient results of one delivery attempt. It is
// returned to the caller and folded into log entries, never persisted. The
// enclosing API call reports success regardless of the outcome; these fields
// are auxiliary diagnostics.
type Outcome struct {
	OverallSuccess  bool              `json:"success"`
	TotalRecipients int               `json:"total_recipients"`
	SuccessfulSends int               `json:"successful_sends"`
	FailedSends     int               `json:"failed_sends"`
	Results         []RecipientResult `json:"results,omitempty"`
	Errors          []string          `json:"errors,omitempty"`
}

// RecipientResult records the fate of a single recipient's send.
type RecipientResult struct {
	Recipient string `json:"recipient"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// record appends one per-recipient result and updates the aggregates so the
// accounting invariant (successful + failed == total) holds at every step.
func (o *Outcome) record(recipient string, err error) {
	res := RecipientResult{Recipient: recipient, Success: err == nil}
	if err != nil {
		res.Error = err.Error()
		o.FailedSends++
		o.Errors = append(o.Errors, "Failed to send to "+recipient+": "+err.Error())
	} else {
		o.SuccessfulSends++
	}
	o.Results = append(o.Results, res)
	o.OverallSuccess = o.FailedSends == 0
}
