package main

import (
	"contacts-backend/internal/contact"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	listPage     int
	listPageSize int
	listWhere    []string
	listMatch    string
	listQuick    []string

	exportOut    string
	importFormat string
	updateSet    []string
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Browse and change the contact list",
}

// addListFlags registers the flags that scope a contact page.
func addListFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&listPage, "page", 1, "Page number, starting at 1")
	cmd.Flags().IntVar(&listPageSize, "page-size", 0, "Contacts per page (default from config)")
	cmd.Flags().StringSliceVar(&listWhere, "where", nil, "Filter criterion key:value, repeatable")
	cmd.Flags().StringVar(&listMatch, "match", "all", "Combine --where criteria with all (AND) or any (OR)")
	cmd.Flags().StringSliceVar(&listQuick, "quick", nil, "Quick filter: invalidEmail, duplicate or missingPrimaryKey")
}

// loadPage opens a session scoped by the list flags and loads that page.
func loadPage(cmd *cobra.Command) (*session, error) {
	if listPage < 1 {
		return nil, fmt.Errorf("--page must be at least 1")
	}
	s, err := openSession(cmd, false)
	if err != nil {
		return nil, err
	}

	o := s.orch
	err = func() error {
		if len(listWhere) > 0 {
			if err := applyCriteria(o.Filters, listWhere, listMatch); err != nil {
				return err
			}
		}
		for _, q := range listQuick {
			if err := o.SetQuickFilter(contact.QuickFilter(q), true); err != nil {
				return s.result(err)
			}
		}
		if listPageSize > 0 {
			if err := o.SetPageSize(listPageSize); err != nil {
				return s.result(err)
			}
		}
		if err := o.SetPage(listPage - 1); err != nil {
			return s.result(err)
		}
		return s.result(o.Load(cmd.Context()))
	}()
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func printContacts(s *session) {
	columns := s.orch.Columns()
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%s\n", strings.ToUpper(strings.Join(columns, "\t")))
	for _, c := range s.orch.Contacts() {
		cells := make([]string, 0, len(columns)+1)
		cells = append(cells, c.ID)
		for _, col := range columns {
			text, _ := c.FieldText(col)
			cells = append(cells, text)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()

	o := s.orch
	pages := (o.Total() + o.PageSize() - 1) / o.PageSize()
	s.printf("Page %d of %d, %d contacts\n", o.Page()+1, max(pages, 1), o.Total())
}

var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of contacts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadPage(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		printContacts(s)
		return nil
	},
}

var contactsAggregatesCmd = &cobra.Command{
	Use:   "aggregates",
	Short: "Show contact totals, invalid emails and duplicates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, true)
		if err != nil {
			return err
		}
		defer s.Close()

		a := s.orch.Aggregates()
		w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Total\t%d\n", a.Total)
		fmt.Fprintf(w, "Invalid emails\t%d\n", a.InvalidEmailCount)
		fmt.Fprintf(w, "Duplicates\t%d\n", a.DuplicateCount)
		return w.Flush()
	},
}

var contactsFinalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Finalize the contact list, locking both keys",
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
		if err := s.orch.Finalize(ctx); err != nil {
			return s.result(err)
		}
		printKeys(s)
		return nil
	},
}

var contactsUpdateCmd = &cobra.Command{
	Use:   "update [id...] --set key=value",
	Short: "Change fields of contacts",
	Long: `Change fields of the given contacts. Without ids, every contact on the
page selected by the list flags is changed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := parseAssignments(updateSet)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			s, err := loadPage(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			s.orch.SelectAll()
			n := len(s.orch.Selected())
			if err := s.orch.UpdateSelected(cmd.Context(), fields); err != nil {
				return s.result(err)
			}
			s.printf("Updated %d contacts\n", n)
			return nil
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
		for _, id := range args {
			if err := s.orch.UpdateContact(ctx, id, fields); err != nil {
				return s.result(err)
			}
		}
		s.printf("Updated %d contacts\n", len(args))
		return nil
	},
}

var contactsDeleteCmd = &cobra.Command{
	Use:   "delete [id...]",
	Short: "Delete contacts",
	Long: `Delete the given contacts. Without ids, every contact on the page
selected by the list flags is deleted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			if len(listWhere) == 0 && len(listQuick) == 0 {
				return fmt.Errorf("pass contact ids, or --where/--quick to delete a filtered page")
			}
			s, err := loadPage(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			s.orch.SelectAll()
			n := len(s.orch.Selected())
			if err := s.orch.DeleteSelected(cmd.Context()); err != nil {
				return s.result(err)
			}
			s.printf("Deleted %d contacts\n", n)
			return nil
		}

		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		for _, id := range args {
			if err := s.orch.DeleteContact(cmd.Context(), id); err != nil {
				return s.result(err)
			}
		}
		s.printf("Deleted %d contacts\n", len(args))
		return nil
	},
}

var contactsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import contacts from a CSV or JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		records, err := readRecords(f, args[0], importFormat)
		if err != nil {
			return err
		}

		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		result, err := s.orch.Import(cmd.Context(), records)
		if err != nil {
			return s.result(err)
		}
		s.printf("Imported %d contacts, %d duplicates to resolve\n", result.Created, result.Duplicates)
		return nil
	},
}

var contactsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every contact as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		var w io.Writer = s.out
		if exportOut != "" && exportOut != "-" {
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := f.Close(); err == nil {
					err = cerr
				}
			}()
			w = f
		}
		return s.result(s.orch.Export(cmd.Context(), w))
	},
}

func init() {
	for _, cmd := range []*cobra.Command{contactsListCmd, contactsUpdateCmd, contactsDeleteCmd} {
		addListFlags(cmd)
	}
	contactsUpdateCmd.Flags().StringArrayVar(&updateSet, "set", nil, "Field assignment key=value, repeatable")
	_ = contactsUpdateCmd.MarkFlagRequired("set")
	contactsImportCmd.Flags().StringVar(&importFormat, "format", "", "csv or json (default from the file extension)")
	contactsExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default stdout)")

	contactsCmd.AddCommand(
		contactsListCmd,
		contactsAggregatesCmd,
		contactsFinalizeCmd,
		contactsUpdateCmd,
		contactsDeleteCmd,
		contactsImportCmd,
		contactsExportCmd,
	)
}
