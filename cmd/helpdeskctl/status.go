package main

import (
	"fmt"
	"io"
	"net/http"

	"github.com/ashureev/helpdesk/internal/agent"
	"github.com/ashureev/helpdesk/internal/config"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var checkToken bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which integrations are configured",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		printStatus(out, cfg)
		if !checkToken {
			return nil
		}

		tokens := agent.NewTokenProvider(cfg.Agent,
			agent.WithHTTPClient(&http.Client{Timeout: cfg.Agent.HTTPTimeout}),
			agent.WithLogger(logger),
		)
		if _, err := tokens.Token(cmd.Context()); err != nil {
			fmt.Fprintf(out, "token:    %v\n", err)
			return err
		}
		if exp, ok := tokens.ExpiresAt(); ok {
			fmt.Fprintf(out, "token:    ok, expires %s\n", humanize.Time(exp))
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&checkToken, "check", false, "exchange the API key for a token")
}

func printStatus(w io.Writer, c *config.Config) {
	fmt.Fprintf(w, "agent:    %s\n", configured(c.AgentConfigured()))
	if c.Agent.HostURL != "" {
		fmt.Fprintf(w, "  host:     %s\n", c.Agent.HostURL)
	}
	fmt.Fprintf(w, "  api key:  %s\n", configured(c.Agent.APIKey != ""))
	fmt.Fprintf(w, "  agent id: %s\n", configured(c.Agent.AgentID != ""))
	fmt.Fprintf(w, "tickets:  %s\n", configured(c.TicketsEnabled()))
	if c.TicketsEnabled() {
		fmt.Fprintf(w, "  url:      %s\n", c.Ticket.URL)
	}
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}
