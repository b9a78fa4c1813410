// helpdeskctl talks to the support agent and the ticket endpoint from a terminal.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/ashureev/helpdesk/internal/agent"
	"github.com/ashureev/helpdesk/internal/config"
	"github.com/ashureev/helpdesk/internal/ticket"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	raw     bool
	verbose bool
	envFile string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "helpdeskctl",
	Short: "Terminal client for the helpdesk support agent",
	Long: `helpdeskctl sends messages to the remote support agent and files incidents
with the ticket endpoint, using the same environment variables as the server.

Run without arguments to start an interactive chat.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
			return fmt.Errorf("load %s: %w", envFile, err)
		}

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&raw, "raw", false, "print replies as plain markdown")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load")

	ticketCmd.Flags().StringVar(&ticketOverrides.IncidentCategory, "category", "", "incident category")
	ticketCmd.Flags().StringVar(&ticketOverrides.ShortDescription, "summary", "", "short description (default: first line)")
	ticketCmd.Flags().StringVar(&ticketOverrides.UrgencyValue, "urgency", "", "urgency (1-3)")
	ticketCmd.Flags().StringVar(&ticketOverrides.ImpactValue, "impact", "", "impact (1-3)")
	ticketCmd.Flags().StringVar(&ticketOverrides.AssignmentGroup, "group", "", "assignment group")
	ticketCmd.Flags().StringVar(&ticketOverrides.CallerUsername, "caller", "", "caller id")

	rootCmd.AddCommand(askCmd, chatCmd, ticketCmd, optionsCmd, statusCmd)
}

func newAgentClient() *agent.Client {
	return agent.NewClient(cfg.Agent,
		agent.WithHTTPClient(&http.Client{Timeout: cfg.Agent.HTTPTimeout}),
		agent.WithLogger(logger),
	)
}

func newTicketClient() *ticket.Client {
	return ticket.NewClient(cfg.Ticket, nil, logger)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
