// Package ticket turns free-text issue descriptions into incident-creation requests
// and turns the ticketing endpoint's replies back into text for the transcript.
package ticket

// Request is the body sent to the ticket-creation endpoint.
type Request struct {
	ShortDescription string `json:"short_description"`
	Description      string `json:"description,omitempty"`
	UrgencyValue     string `json:"urgency_value"`
	ImpactValue      string `json:"impact_value,omitempty"`
	AssignmentGroup  string `json:"assignment_group,omitempty"`
	IncidentCategory string `json:"incident_category,omitempty"`
	CallerUsername   string `json:"caller_username,omitempty"`
}

// Response is the ticket-creation endpoint's reply. Every field is optional on the
// wire; Interpret copes with any subset.
type Response struct {
	Success            bool          `json:"success"`
	IncidentNumber     string        `json:"incident_number,omitempty"`
	IncidentSysID      string        `json:"incident_sys_id,omitempty"`
	SlackMessageSent   bool          `json:"slack_message_sent"`
	GithubIssueCreated bool          `json:"github_issue_created"`
	GithubIssueURL     string        `json:"github_issue_url,omitempty"`
	GithubIssueNumber  int           `json:"github_issue_number,omitempty"`
	ErrorDetails       *ErrorDetails `json:"error_details,omitempty"`
}

// ErrorDetails describes why a ticket could not be created.
type ErrorDetails struct {
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Service      string `json:"service,omitempty"`
}

// Result is what a UI shell shows after a submission.
type Result struct {
	Text           string `json:"text"`
	Success        bool   `json:"success"`
	IncidentNumber string `json:"incident_number,omitempty"`
	IssueURL       string `json:"issue_url,omitempty"`
}

// Overrides are optional per-submission values that take precedence over the
// configured defaults.
type Overrides struct {
	ShortDescription string `json:"short_description,omitempty"`
	UrgencyValue     string `json:"urgency_value,omitempty"`
	ImpactValue      string `json:"impact_value,omitempty"`
	AssignmentGroup  string `json:"assignment_group,omitempty"`
	IncidentCategory string `json:"incident_category,omitempty"`
	CallerUsername   string `json:"caller_username,omitempty"`
}
