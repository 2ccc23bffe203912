package models

// Recipient is a candidate on the static outreach roster.
type Recipient struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Title     string `json:"title"`
	Location  string `json:"location"`
}

// TemplateVars returns the placeholder values for this recipient.
func (r Recipient) TemplateVars() map[string]string {
	return map[string]string{
		"first_name": r.FirstName,
		"last_name":  r.LastName,
		"title":      r.Title,
		"location":   r.Location,
		"email":      r.Email,
	}
}
