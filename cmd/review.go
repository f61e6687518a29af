package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abhisek/adaptiq/internal/clock"
	"github.com/abhisek/adaptiq/internal/logger"
	"github.com/abhisek/adaptiq/internal/spacedrep"
	"github.com/abhisek/adaptiq/internal/store"
	"github.com/abhisek/adaptiq/internal/ui/theme"
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Inspect and record spaced-repetition reviews",
}

// reviewService wires a review service for one CLI invocation. The caller
// closes the returned store.
func reviewService(cmd *cobra.Command) (*spacedrep.Service, *store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	log := logger.Nop()
	b, err := loadCatalog(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	st, err := openStore(cmd, cfg)
	if err != nil {
		return nil, nil, err
	}
	svc := spacedrep.NewService(cfg.ReviewService(), st.ReviewRepo(), b.Catalog, clock.System{}, log)
	return svc, st, nil
}

var reviewDueCmd = &cobra.Command{
	Use:   "due",
	Short: "List reviews due today",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")

		svc, st, err := reviewService(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		entries, err := svc.Due(cmd.Context(), user, limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "Nothing due today.")
			return nil
		}

		today := clock.Today(clock.System{}.Now())
		fmt.Fprintf(out, "%-20s  %-10s  %-8s  %8s  %5s  %s\n",
			"Item", "Next", "Status", "Interval", "Ease", "Content")
		fmt.Fprintln(out, theme.Rule(90))
		for _, e := range entries {
			rec := spacedrep.Record{NextReview: e.NextReview}
			content := e.Content
			if len(content) > 36 {
				content = content[:33] + "..."
			}
			fmt.Fprintf(out, "%-20s  %-10s  %-8s  %8d  %5.2f  %s\n",
				e.ItemID, e.NextReview.Format(store.DateLayout), theme.ReviewStatus(string(rec.Status(today))),
				e.Interval, e.Ease, content)
		}
		fmt.Fprintf(out, "\n%s\n", theme.Count(len(entries), "due"))
		return nil
	},
}

var reviewStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show review statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")

		svc, st, err := reviewService(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := svc.Stats(cmd.Context(), user)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, theme.Title.Render("Reviews for "+user))
		fmt.Fprintf(out, "%s, %s, %s\n",
			theme.Count(stats.Total, "tracked"),
			theme.Count(stats.DueToday, "due today"),
			theme.Count(stats.Overdue, "overdue"))

		printDistribution(cmd, "Interval", stats.IntervalDistribution)
		printDistribution(cmd, "Ease", stats.EaseDistribution)
		printDistribution(cmd, "Tags", stats.TagDistribution)
		return nil
	},
}

func printDistribution(cmd *cobra.Command, title string, dist map[string]int) {
	if len(dist) == 0 {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%s\n", theme.Title.Render(title))
	keys := make([]string, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-12s  %4d  %s\n", k, dist[k], strings.Repeat("█", min(dist[k], 40)))
	}
}

var reviewRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a self-graded review (quality 0-5)",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		item, _ := cmd.Flags().GetString("item")
		quality, _ := cmd.Flags().GetInt("quality")

		svc, st, err := reviewService(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		rec, err := svc.RecordQuality(cmd.Context(), user, item, quality)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s next review %s (interval %d, repetition %d, ease %.2f)\n",
			theme.Check(quality >= spacedrep.PassQuality), rec.ItemID,
			rec.NextReview.Format(store.DateLayout), rec.Interval, rec.Repetition, rec.Ease)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{reviewDueCmd, reviewStatsCmd, reviewRecordCmd} {
		c.Flags().String("user", "", "User id")
		_ = c.MarkFlagRequired("user")
		reviewCmd.AddCommand(c)
	}
	reviewDueCmd.Flags().Int("limit", spacedrep.DefaultDueLimit, "Maximum number of reviews to list")

	reviewRecordCmd.Flags().String("item", "", "Item id")
	reviewRecordCmd.Flags().Int("quality", -1, "Recall quality, 0-5")
	_ = reviewRecordCmd.MarkFlagRequired("item")
	_ = reviewRecordCmd.MarkFlagRequired("quality")
}
