package ticket

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ashureev/helpdesk/internal/config"
	"github.com/samber/lo"
)

const (
	// GenericFailureText is shown when a reply carries no usable error message.
	GenericFailureText = "❌ Sorry, something went wrong while creating your ticket. Please try again later."

	// CategoryErrorBug is chosen for descriptions containing a stack trace.
	CategoryErrorBug = "Error / Bug"

	shortDescriptionLimit = 80
)

var stackTracePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)Traceback \(most recent call last\)`),
	regexp.MustCompile(`(?im)at .+\(.+:\d+\)`),
	regexp.MustCompile(`(?im)^\s+at\s+`),
	regexp.MustCompile(`(?im)Exception in thread`),
	regexp.MustCompile(`(?im)Error:\s*\n\s+at\s+`),
	regexp.MustCompile(`(?im)File ".+", line \d+`),
	regexp.MustCompile(`(?im)\.py", line \d+`),
	regexp.MustCompile(`(?im)\.java:\d+\)`),
	regexp.MustCompile(`(?im)\.js:\d+:\d+`),
	regexp.MustCompile(`(?im)\.ts:\d+:\d+`),
	regexp.MustCompile(`(?im)Stack trace:`),
	regexp.MustCompile(`(?im)Call stack:`),
	regexp.MustCompile(`(?im)NullPointerException`),
	regexp.MustCompile(`(?im)TypeError:|ValueError:|KeyError:|AttributeError:`),
	regexp.MustCompile(`(?im)Caused by:`),
}

// ContainsStackTrace reports whether text looks like it includes a stack trace.
func ContainsStackTrace(text string) bool {
	for _, re := range stackTracePatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// BuildRequest builds an incident request from free text. Overrides win over the
// configured defaults. Without a category, a stack trace selects "Error / Bug".
func BuildRequest(text string, defaults config.TicketConfig, o Overrides) Request {
	text = strings.TrimSpace(text)

	category, _ := lo.Coalesce(o.IncidentCategory, defaults.Category)
	if category == "" && ContainsStackTrace(text) {
		category = CategoryErrorBug
	}

	short, _ := lo.Coalesce(strings.TrimSpace(o.ShortDescription), summarize(text))
	urgency, _ := lo.Coalesce(o.UrgencyValue, defaults.Urgency, "3")
	impact, _ := lo.Coalesce(o.ImpactValue, defaults.Impact)
	group, _ := lo.Coalesce(o.AssignmentGroup, defaults.AssignmentGroup)
	caller, _ := lo.Coalesce(o.CallerUsername, defaults.Caller)

	return Request{
		ShortDescription: short,
		Description:      text,
		UrgencyValue:     urgency,
		ImpactValue:      impact,
		AssignmentGroup:  group,
		IncidentCategory: category,
		CallerUsername:   caller,
	}
}

// summarize returns the first non-blank line of text, cut to shortDescriptionLimit
// runes.
func summarize(text string) string {
	var line string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	if utf8.RuneCountInString(line) <= shortDescriptionLimit {
		return line
	}
	runes := []rune(line)
	return strings.TrimSpace(string(runes[:shortDescriptionLimit-3])) + "..."
}

// Interpret turns a ticket endpoint reply into text. It never fails: a body that is
// not a JSON object yields GenericFailureText, and fields of an unexpected type are
// treated as absent.
func Interpret(body []byte) Result {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return Result{Text: GenericFailureText}
	}

	resp := Response{
		IncidentNumber: stringField(data, "incident_number"),
		GithubIssueURL: stringField(data, "github_issue_url"),
	}
	resp.Success, _ = data["success"].(bool)
	resp.SlackMessageSent, _ = data["slack_message_sent"].(bool)
	resp.GithubIssueCreated, _ = data["github_issue_created"].(bool)
	if details, ok := data["error_details"].(map[string]any); ok {
		resp.ErrorDetails = &ErrorDetails{ErrorMessage: stringField(details, "error_message")}
	}
	return Describe(resp)
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

// Describe renders a decoded reply as text.
func Describe(resp Response) Result {
	if !resp.Success {
		if resp.ErrorDetails != nil && resp.ErrorDetails.ErrorMessage != "" {
			return Result{Text: "❌ Failed to create the ticket: " + resp.ErrorDetails.ErrorMessage}
		}
		return Result{Text: GenericFailureText}
	}

	var b strings.Builder
	if resp.IncidentNumber != "" {
		fmt.Fprintf(&b, "✅ Incident **%s** has been created.", resp.IncidentNumber)
	} else {
		b.WriteString("✅ Your ticket has been created.")
	}

	if resp.SlackMessageSent {
		b.WriteString("\n\n• The support team has been notified on Slack.")
	} else {
		b.WriteString("\n\n• The support team could not be notified on Slack.")
	}
	if resp.GithubIssueCreated {
		if resp.GithubIssueURL != "" {
			fmt.Fprintf(&b, "\n• A GitHub issue was opened for the stack trace: %s", resp.GithubIssueURL)
		} else {
			b.WriteString("\n• A GitHub issue was opened for the stack trace.")
		}
	}

	return Result{
		Text:           b.String(),
		Success:        true,
		IncidentNumber: resp.IncidentNumber,
		IssueURL:       resp.GithubIssueURL,
	}
}
