package main

import (
	"contacts-backend/internal/governance"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Show and change the primary and email keys",
}

var keysShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the key configuration and pending unlock requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.orch.Keys.Load(cmd.Context()); err != nil {
			return s.result(err)
		}
		printKeys(s)
		return nil
	},
}

func printKeys(s *session) {
	keys := s.orch.Keys
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tATTRIBUTE\tLOCKED\tUNLOCK REQUEST")
	for _, kind := range []governance.KeyKind{governance.KeyPrimary, governance.KeyEmail} {
		attribute, ok := keys.GetCurrentKey(kind)
		if !ok {
			attribute = "-"
		}
		locked := "no"
		if keys.IsLocked(kind) {
			locked = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", kind, attribute, locked, keys.PendingRequest(kind).Status)
	}
	w.Flush()

	finalized := "no"
	if keys.Config().IsFinalized {
		finalized = "yes"
	}
	s.printf("Finalized: %s\n", finalized)
}

var keysSetCmd = &cobra.Command{
	Use:   "set <primary|email> <attribute>",
	Short: "Choose the attribute used as a key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
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
		if err := s.orch.SetKey(ctx, kind, args[1]); err != nil {
			return s.result(err)
		}
		printKeys(s)
		return nil
	},
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Clear the primary key",
	Args:  cobra.NoArgs,
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
		if err := s.orch.DeleteKey(ctx, governance.KeyPrimary); err != nil {
			return s.result(err)
		}
		printKeys(s)
		return nil
	},
}

var keysRequestUnlockCmd = &cobra.Command{
	Use:   "request-unlock <primary|email>",
	Short: "Ask an administrator to allow one more edit of a locked key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
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
		req, err := s.orch.RequestUnlock(ctx, kind)
		if err != nil {
			return s.result(err)
		}
		s.printf("Unlock request %s: %s\n", req.RequestType, req.Status)
		return nil
	},
}

var keysCancelUnlockCmd = &cobra.Command{
	Use:   "cancel-unlock <primary|email>",
	Short: "Withdraw a pending unlock request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
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
		if err := s.orch.CancelUnlockRequest(ctx, kind); err != nil {
			return s.result(err)
		}
		s.printf("Unlock request %s withdrawn\n", kind.RequestType())
		return nil
	},
}

var keysDecideCmd = &cobra.Command{
	Use:   "decide <tenant> <primary|email> <approve|reject>",
	Short: "Approve or reject a tenant's unlock request (admin token)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[1])
		if err != nil {
			return err
		}
		var approve bool
		switch args[2] {
		case "approve":
			approve = true
		case "reject":
		default:
			return fmt.Errorf("unknown decision %q, want approve or reject", args[2])
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		req, err := c.DecideRevertRequest(cmd.Context(), args[0], kind.RequestType(), approve)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Unlock request %s of %s: %s\n", req.RequestType, args[0], req.Status)
		return nil
	},
}

func init() {
	keysCmd.AddCommand(keysShowCmd, keysSetCmd, keysDeleteCmd, keysRequestUnlockCmd, keysCancelUnlockCmd, keysDecideCmd)
}
