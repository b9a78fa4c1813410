package agent

import (
	"errors"
	"fmt"

	"github.com/ashureev/helpdesk/internal/errx"
)

// WelcomeMessage opens every new conversation in the UI shells.
const WelcomeMessage = "Hello! I'm the TechNova Support Assistant. How can I help you today?\n\n" +
	"I can help you with:\n" +
	"• Creating support incidents\n" +
	"• Reporting bugs\n" +
	"• Getting support for TechNova products"

// SetupRequiredReply is shown in place of a reply while the agent is not configured.
const SetupRequiredReply = "⚠️ **API Key Required**\n\n" +
	"To connect to the support agent, set the API key in the `.env` file:\n\n" +
	"```\nWXO_API_KEY=your_api_key_here\n```\n\n" +
	"Then restart the server."

// FriendlyReply turns a failed SendMessage into assistant text for the transcript.
func FriendlyReply(err error, configured bool) string {
	if !configured || errors.Is(err, errx.ErrConfiguration) {
		return SetupRequiredReply
	}
	return fmt.Sprintf("I'm having trouble connecting to the agent.\n\n**Error:** %v\n\n"+
		"Please check:\n• API key is valid\n• Agent is deployed and running", err)
}
