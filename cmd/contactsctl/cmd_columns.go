package main

import (
	"github.com/spf13/cobra"
)

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "Show or save the contact list columns",
}

var columnsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the columns of the contact list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, true)
		if err != nil {
			return err
		}
		defer s.Close()

		for _, c := range s.orch.Columns() {
			s.printf("%s\n", c)
		}
		return nil
	},
}

var columnsSaveCmd = &cobra.Command{
	Use:   "save <column>...",
	Short: "Save the column order of the contact list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		if err := s.orch.Keys.Load(ctx); err != nil {
			return s.result(err)
		}
		if err := s.orch.SaveColumns(ctx, args); err != nil {
			return s.result(err)
		}
		s.printf("Saved %d columns\n", len(args))
		return nil
	},
}

func init() {
	columnsCmd.AddCommand(columnsShowCmd, columnsSaveCmd)
}
