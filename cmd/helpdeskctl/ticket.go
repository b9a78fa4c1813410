package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ashureev/helpdesk/internal/ticket"
	"github.com/spf13/cobra"
)

var ticketOverrides ticket.Overrides

var ticketCmd = &cobra.Command{
	Use:   "ticket [description]",
	Short: "File an incident with the ticket endpoint",
	Long: `File an incident. The description is taken from the arguments, or from
stdin when no arguments are given.

Example:
  helpdeskctl ticket --urgency 1 "Checkout fails with a 500 since this morning"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if text == "" {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read description: %w", err)
			}
			text = string(b)
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("a description is required")
		}

		res, err := newTicketClient().File(cmd.Context(), text, ticketOverrides)
		fmt.Fprint(cmd.OutOrStdout(), renderMarkdown(res.Text, raw))
		return err
	},
}

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Print the ticket field choices as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog, err := ticket.LoadCatalog(cfg.Ticket.CatalogPath)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(catalog)
	},
}
