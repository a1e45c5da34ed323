package main

import (
	"contacts-backend/internal/governance"
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	duplicatePages int
	acceptSet      []string
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Resolve contacts that share a primary key value",
}

var duplicatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending duplicate pairs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if duplicatePages < 1 {
			return fmt.Errorf("--pages must be at least 1")
		}
		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		if err := s.orch.Keys.Load(ctx); err != nil {
			return s.result(err)
		}
		ds, err := s.orch.OpenDuplicates(ctx)
		if err != nil {
			return s.result(err)
		}
		for page := 2; page <= duplicatePages && ds.HasMore(); page++ {
			if _, err := ds.FetchPage(ctx, page); err != nil {
				return err
			}
		}

		for _, p := range ds.Pairs() {
			printPair(s.out, p)
		}
		s.printf("%d of %d pending pairs shown\n", len(ds.Pairs()), ds.TotalRecords())
		return nil
	},
}

func printPair(out io.Writer, p governance.DuplicatePair) {
	fmt.Fprintf(out, "%s\n", p.ID)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  FIELD\tOLD\tNEW")
	seen := make(map[string]struct{})
	keys := append(p.Old.Fields.Keys(), p.New.Fields.Keys()...)
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		oldText, _ := p.Old.FieldText(k)
		newText, _ := p.New.FieldText(k)
		fmt.Fprintf(w, "  %s\t%s\t%s\n", k, oldText, newText)
	}
	w.Flush()
}

// findPair loads pages of ds until pairID is among the pending pairs.
func findPair(ctx context.Context, ds *governance.DuplicateSession, pairID string) error {
	for page := 2; ; page++ {
		for _, p := range ds.Pairs() {
			if p.ID == pairID {
				return ds.SelectPair(pairID)
			}
		}
		if !ds.HasMore() {
			return fmt.Errorf("duplicate pair %s is not pending", pairID)
		}
		if _, err := ds.FetchPage(ctx, page); err != nil {
			return err
		}
	}
}

var duplicatesAcceptCmd = &cobra.Command{
	Use:   "accept <pair-id> <old|new>",
	Short: "Keep one side of a duplicate pair",
	Long: `Keep one side of a duplicate pair. --set edits fields of the kept side
before it is saved; the primary key cannot be edited.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		side, err := parseSide(args[1])
		if err != nil {
			return err
		}
		edits, err := parseAssignments(acceptSet)
		if err != nil {
			return err
		}

		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		if err := s.orch.Keys.Load(ctx); err != nil {
			return s.result(err)
		}
		ds, err := s.orch.OpenDuplicates(ctx)
		if err != nil {
			return s.result(err)
		}
		if err := findPair(ctx, ds, args[0]); err != nil {
			return err
		}
		for _, k := range edits.Keys() {
			v, _ := edits.Get(k)
			if err := ds.EditField(side, k, v); err != nil {
				return err
			}
		}
		if err := s.orch.AcceptDuplicate(ctx, side); err != nil {
			return s.result(err)
		}
		s.printf("Kept the %s contact of %s, %d pairs pending\n", side, args[0], ds.TotalRecords())
		return nil
	},
}

var duplicatesAcceptAllCmd = &cobra.Command{
	Use:   "accept-all <old|new>",
	Short: "Resolve every pending pair in favour of one side",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		side, err := parseSide(args[0])
		if err != nil {
			return err
		}
		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		if err := s.orch.Keys.Load(ctx); err != nil {
			return s.result(err)
		}
		ds, err := s.orch.OpenDuplicates(ctx)
		if err != nil {
			return s.result(err)
		}
		total := ds.TotalRecords()
		if err := s.orch.AcceptAllDuplicates(ctx, side); err != nil {
			return s.result(err)
		}
		s.printf("Resolved %d pairs keeping the %s contacts\n", total, side)
		return nil
	},
}

func init() {
	duplicatesListCmd.Flags().IntVar(&duplicatePages, "pages", 1, "Number of pages to load")
	duplicatesAcceptCmd.Flags().StringArrayVar(&acceptSet, "set", nil, "Edit a field of the kept side, key=value, repeatable")

	duplicatesCmd.AddCommand(duplicatesListCmd, duplicatesAcceptCmd, duplicatesAcceptAllCmd)
}
