package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/adaptiq/internal/catalog"
	"github.com/abhisek/adaptiq/internal/ui/theme"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Work with catalog files",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a catalog file and summarize its assessments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := catalog.LoadFile(args[0])
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), theme.Check(false), args[0])
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, theme.Check(true), args[0])
		fmt.Fprintln(out)

		ctx := context.Background()
		assessments, items := b.Catalog.Len()
		fmt.Fprintf(out, "%-24s  %-8s  %5s  %5s  %5s  %8s  %s\n",
			"Assessment", "Strategy", "Items", "Min", "Max", "Minutes", "Attempts")
		fmt.Fprintln(out, theme.Rule(80))
		for _, id := range b.Catalog.AssessmentIDs() {
			a, err := b.Catalog.Assessment(ctx, id)
			if err != nil {
				return err
			}
			attempts := "unlimited"
			if a.AttemptsAllowed > 0 {
				attempts = fmt.Sprint(a.AttemptsAllowed)
			}
			title := id
			if len(title) > 24 {
				title = title[:21] + "..."
			}
			fmt.Fprintf(out, "%-24s  %-8s  %5d  %5d  %5d  %8d  %s\n",
				title, a.Strategy, len(a.ItemIDs), a.MinItems, a.MaxItems, int(a.TimeLimit.Minutes()), attempts)
		}

		fmt.Fprintf(out, "\n%s, %s, %s, %s\n",
			theme.Count(assessments, "assessments"),
			theme.Count(items, "items"),
			theme.Count(len(b.Enrollments), "enrollments"),
			theme.Count(len(b.Staff), "staff"))
		if len(b.Staff) > 0 {
			var names []string
			for _, s := range b.Staff {
				names = append(names, s.UserID+" ("+s.Role+")")
			}
			fmt.Fprintln(out, theme.Hint.Render("staff: "+strings.Join(names, ", ")))
		}
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogValidateCmd)
}
