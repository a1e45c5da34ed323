package main

import (
	"contacts-backend/internal/contact"
	"contacts-backend/internal/governance"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	valuePages int
	matchMode  string
)

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "Explore filter keys and values",
}

var filtersKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the field keys a filter can use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		keys, err := s.orch.Filters.LoadKeys(cmd.Context())
		if err != nil {
			return s.result(err)
		}
		for _, k := range keys {
			s.printf("%s\n", k)
		}
		return nil
	},
}

var filtersValuesCmd = &cobra.Command{
	Use:   "values <key> [search-term]",
	Short: "Suggest values of a field",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if valuePages < 1 {
			return fmt.Errorf("--pages must be at least 1")
		}
		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		b := s.orch.Filters
		groupID := b.AddGroup()
		conditionID := b.Snapshot().Groups[0].Conditions[0].ID
		if err := b.SetConditionKey(groupID, conditionID, args[0]); err != nil {
			return err
		}
		if len(args) == 2 {
			if err := b.SetConditionSearchTerm(groupID, conditionID, args[1]); err != nil {
				return err
			}
		}
		b.Wait()
		for page := 1; page < valuePages; page++ {
			if err := b.LoadMoreValues(groupID, conditionID); err != nil {
				return err
			}
			b.Wait()
		}

		c := b.Snapshot().Groups[0].Conditions[0]
		for _, v := range c.ValuesData {
			s.printf("%s\n", v)
		}
		if c.HasMore {
			s.printf("... more values available, raise --pages\n")
		}
		return nil
	},
}

var filtersPreviewCmd = &cobra.Command{
	Use:   "preview <key:value>...",
	Short: "Count the contacts criteria would select",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := applyCriteria(s.orch.Filters, args, matchMode); err != nil {
			return err
		}
		msg, err := s.orch.Preview(cmd.Context())
		if err != nil {
			return s.result(err)
		}
		s.printf("%s\n", msg)
		return nil
	},
}

// applyCriteria loads "key:value" criteria as one group combined with mode
// ("all" or "any").
func applyCriteria(b *governance.Builder, criteria []string, mode string) error {
	var logic contact.Logic
	switch mode {
	case "", "all":
		logic = contact.LogicAnd
	case "any":
		logic = contact.LogicOr
	default:
		return fmt.Errorf("unknown match mode %q, want all or any", mode)
	}
	if err := b.LoadSavedCriteria(criteria); err != nil {
		return err
	}
	state := b.Snapshot()
	if len(state.Groups) == 0 {
		return nil
	}
	return b.SetGroupLogic(state.Groups[0].ID, logic)
}

func init() {
	filtersValuesCmd.Flags().IntVar(&valuePages, "pages", 1, "Number of suggestion pages to fetch")
	filtersPreviewCmd.Flags().StringVar(&matchMode, "match", "all", "Combine criteria with all (AND) or any (OR)")

	filtersCmd.AddCommand(filtersKeysCmd, filtersValuesCmd, filtersPreviewCmd)
}
