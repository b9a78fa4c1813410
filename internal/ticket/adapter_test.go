package ticket

import (
	"strings"
	"testing"

	"github.com/ashureev/helpdesk/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestInterpret(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		contains []string
		success  bool
		incident string
	}{
		{
			name:     "success with incident number",
			body:     `{"success":true,"incident_number":"INC001"}`,
			contains: []string{"INC001"},
			success:  true,
			incident: "INC001",
		},
		{
			name:     "success with notifications",
			body:     `{"success":true,"incident_number":"INC002","slack_message_sent":true,"github_issue_created":true,"github_issue_url":"https://github.com/acme/app/issues/7"}`,
			contains: []string{"INC002", "notified on Slack", "https://github.com/acme/app/issues/7"},
			success:  true,
			incident: "INC002",
		},
		{
			name:     "success without slack",
			body:     `{"success":true,"incident_number":"INC003","slack_message_sent":false}`,
			contains: []string{"could not be notified"},
			success:  true,
			incident: "INC003",
		},
		{
			name:     "mistyped optional field",
			body:     `{"success":true,"incident_number":"INC004","github_issue_number":"seven"}`,
			contains: []string{"INC004"},
			success:  true,
			incident: "INC004",
		},
		{
			name:     "failure with message",
			body:     `{"success":false,"error_details":{"error_message":"bad"}}`,
			contains: []string{"bad"},
		},
		{
			name:     "failure without details",
			body:     `{"success":false}`,
			contains: []string{GenericFailureText},
		},
		{
			name:     "failure with empty message",
			body:     `{"success":false,"error_details":{"error_code":"E1"}}`,
			contains: []string{GenericFailureText},
		},
		{
			name:     "failure with string details",
			body:     `{"success":false,"error_details":"bad"}`,
			contains: []string{GenericFailureText},
		},
		{
			name:     "missing success",
			body:     `{"incident_number":"INC005"}`,
			contains: []string{GenericFailureText},
		},
		{
			name:     "not json",
			body:     `Internal Server Error`,
			contains: []string{GenericFailureText},
		},
		{
			name:     "empty body",
			body:     ``,
			contains: []string{GenericFailureText},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Interpret([]byte(tt.body))
			assert.NotEmpty(t, res.Text)
			for _, want := range tt.contains {
				assert.Contains(t, res.Text, want)
			}
			assert.Equal(t, tt.success, res.Success)
			assert.Equal(t, tt.incident, res.IncidentNumber)
		})
	}
}

func TestBuildRequestDefaults(t *testing.T) {
	defaults := config.TicketConfig{
		AssignmentGroup: "Service Desk",
		Urgency:         "3",
		Impact:          "4",
		Caller:          "helpdesk.bot",
	}

	req := BuildRequest("  My VPN keeps dropping\nIt happens every hour since Monday.  ", defaults, Overrides{})
	assert.Equal(t, "My VPN keeps dropping", req.ShortDescription)
	assert.Equal(t, "My VPN keeps dropping\nIt happens every hour since Monday.", req.Description)
	assert.Equal(t, "3", req.UrgencyValue)
	assert.Equal(t, "4", req.ImpactValue)
	assert.Equal(t, "Service Desk", req.AssignmentGroup)
	assert.Equal(t, "helpdesk.bot", req.CallerUsername)
	assert.Empty(t, req.IncidentCategory)
}

func TestBuildRequestOverrides(t *testing.T) {
	defaults := config.TicketConfig{Urgency: "3", Category: "Performance"}
	req := BuildRequest("slow", defaults, Overrides{
		ShortDescription: "Dashboard slow",
		UrgencyValue:     "1",
		IncidentCategory: "Outage",
		CallerUsername:   "jdoe",
	})
	assert.Equal(t, "Dashboard slow", req.ShortDescription)
	assert.Equal(t, "1", req.UrgencyValue)
	assert.Equal(t, "Outage", req.IncidentCategory)
	assert.Equal(t, "jdoe", req.CallerUsername)
}

func TestBuildRequestStackTraceCategory(t *testing.T) {
	trace := "Checkout fails\nTraceback (most recent call last):\n  File \"app.py\", line 12, in <module>\nKeyError: 'cart'"

	req := BuildRequest(trace, config.TicketConfig{}, Overrides{})
	assert.Equal(t, CategoryErrorBug, req.IncidentCategory)

	req = BuildRequest(trace, config.TicketConfig{Category: "Data Issue"}, Overrides{})
	assert.Equal(t, "Data Issue", req.IncidentCategory)
}

func TestBuildRequestLongSummary(t *testing.T) {
	long := strings.Repeat("é", 200)
	req := BuildRequest(long, config.TicketConfig{}, Overrides{})
	assert.True(t, strings.HasSuffix(req.ShortDescription, "..."))
	assert.Equal(t, shortDescriptionLimit, len([]rune(req.ShortDescription)))
	assert.Equal(t, "3", req.UrgencyValue)
}

func TestContainsStackTrace(t *testing.T) {
	positives := []string{
		"Exception in thread \"main\" java.lang.NullPointerException",
		"    at com.acme.Cart.total(Cart.java:42)",
		"TypeError: cannot read property 'x' of undefined\n    at render (app.js:10:5)",
		"error in main.ts:12:3",
		"stack trace:\nframe 1",
		"Caused by: java.io.IOException",
	}
	for _, p := range positives {
		assert.True(t, ContainsStackTrace(p), p)
	}

	negatives := []string{
		"I cannot log in to the portal",
		"The report at noon was late",
		"",
	}
	for _, n := range negatives {
		assert.False(t, ContainsStackTrace(n), n)
	}
}
