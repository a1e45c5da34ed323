package main

import (
	"contacts-backend/internal/client"
	"contacts-backend/internal/events"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow change notifications of the tenant",
	Long: `Follow the tenant's change notifications until interrupted, printing
each event and the refreshed aggregates.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wsURL, err := cfg.eventsURL()
		if err != nil {
			return err
		}
		s, err := openSession(cmd, true)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		printAggregates(s)
		err = s.client.Listen(ctx, wsURL, func(e events.Event) {
			s.printf("%s %s\n", e.At, e.Type)
			s.orch.HandleEvent(ctx, e)
			if e.AffectsAggregates() {
				printAggregates(s)
			}
		})
		if client.IsClosed(err) {
			return nil
		}
		return err
	},
}

func printAggregates(s *session) {
	a := s.orch.Aggregates()
	s.printf("  total=%d invalidEmails=%d duplicates=%d\n", a.Total, a.InvalidEmailCount, a.DuplicateCount)
}
