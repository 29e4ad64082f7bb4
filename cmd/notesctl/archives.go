package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/service"
)

func newArchivesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archives",
		Short: "Inspect archived accounts",
	}
	cmd.AddCommand(newArchivesListCmd(a), newArchivesShowCmd(a))
	return cmd
}

func newArchivesListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [query]",
		Short: "List archive records, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var query string
			if len(args) == 1 {
				query = args[0]
			}

			store := service.NewArchiveStore(a.db.Archives(), false, a.logger)
			records, err := store.List(cmd.Context(), query)
			if err != nil {
				return userFacing(err)
			}
			return writeTable(cmd.OutOrStdout(), records)
		},
	}
}

func writeTable(w io.Writer, records []model.ArchiveRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ARCHIVED AT\tNAME\tEMAIL\tNOTES\tORIGINAL ID")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			r.ArchivedAt.Format(time.RFC3339), r.Name, r.Email, len(r.SavedNotes), r.OriginalUserID)
	}
	return tw.Flush()
}

func newArchivesShowCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show <query>",
		Short: "Show the newest archive record matching a name or email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := service.NewArchiveStore(a.db.Archives(), false, a.logger)
			record, err := store.FindMostRecentByFuzzyMatch(cmd.Context(), args[0])
			if err != nil {
				return userFacing(err)
			}
			if record == nil {
				return fmt.Errorf("no archive record matches %q", args[0])
			}

			out := cmd.OutOrStdout()
			switch output {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(record); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(record)
			default:
				return fmt.Errorf("unknown output format %q (want yaml or json)", output)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format: yaml or json")
	return cmd
}
