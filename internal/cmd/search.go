package cmd

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zfogg/searchstudy/pkg/config"
	clienterrors "github.com/zfogg/searchstudy/pkg/errors"
	"github.com/zfogg/searchstudy/pkg/logger"
	"github.com/zfogg/searchstudy/pkg/output"
)

var (
	searchLimit     int
	searchOffset    int
	searchStructure string

	eventQuery string
	eventRank  int
	hoverMs    int
	scrollPath string
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Run a search and record it as a query",
		Long:  "Run a search during the search task. The previous query is ended and the new one becomes the default for click and hover.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			text := strings.Join(args, " ")

			if prev := studyApp.lastQuery(); prev != "" {
				studyApp.tracker.EndQuery(ctx, prev)
			}
			qid, order := studyApp.tracker.StartQuery(ctx, text, searchStructure)
			if qid != "" {
				if err := studyApp.kv.Set(lastQueryKey, qid); err != nil {
					logger.Warn("Failed to remember query", "err", err)
				}
			} else if err := studyApp.kv.Delete(lastQueryKey); err != nil {
				logger.Warn("Failed to forget query", "err", err)
			}

			res, err := studyApp.api.Search(ctx, text, searchLimit, searchOffset)
			if err != nil {
				return err
			}

			if output.GetFormat() == output.FormatJSON {
				return output.Print("", res)
			}
			if qid != "" {
				output.PrintInfo("Query #%d (%s)", order, qid)
			}
			rows := make([][]string, 0, len(res.Results))
			for _, r := range res.Results {
				rows = append(rows, []string{strconv.Itoa(r.Rank), r.Title, r.URL})
			}
			output.PrintTable([]string{"Rank", "Title", "URL"}, rows)
			output.PrintInfo("%d of %d results", len(res.Results), res.Total)
			return nil
		},
	}
	cmd.Flags().IntVar(&searchLimit, "limit", 10, "Results per page")
	cmd.Flags().IntVar(&searchOffset, "offset", 0, "Results to skip")
	cmd.Flags().StringVar(&searchStructure, "structure", "", "Query structure tag (derived from the text when empty)")
	return cmd
}

func eventQueryID() string {
	if eventQuery != "" {
		return eventQuery
	}
	return studyApp.lastQuery()
}

func newClickCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "click <url>",
		Short: "Record a click on a search result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			qid := eventQueryID()
			if qid == "" {
				return clienterrors.State("no query to attach the click to; run search first")
			}
			order := studyApp.tracker.LogClick(cmd.Context(), qid, args[0], eventRank)
			if order == 0 {
				output.PrintWarning("Click was not recorded")
				return nil
			}
			output.PrintSuccess("Click #%d recorded", order)
			return nil
		},
	}
	cmd.Flags().StringVar(&eventQuery, "query", "", "Query id (default: last search)")
	cmd.Flags().IntVar(&eventRank, "rank", 0, "Result rank, 1-based")
	return cmd
}

func newHoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hover <url>",
		Short: "Record a dwell over a search result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if hoverMs < 0 {
				return clienterrors.Validation("ms", "must not be negative")
			}
			if studyApp.tracker.LogHover(cmd.Context(), eventQueryID(), args[0], eventRank, hoverMs) == "" {
				output.PrintWarning("Hover was not recorded")
				return nil
			}
			output.PrintSuccess("Hover recorded")
			return nil
		},
	}
	cmd.Flags().StringVar(&eventQuery, "query", "", "Query id (default: last search)")
	cmd.Flags().IntVar(&eventRank, "rank", 0, "Result rank, 1-based")
	cmd.Flags().IntVar(&hoverMs, "ms", 0, "Dwell time in milliseconds")
	return cmd
}

func newScrollCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scroll <pct...>",
		Short: "Record scroll positions for one page visit",
		Long:  "Record the scroll positions seen during one page visit. Only the deepest position is sent.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st := studyApp.tracker.NewScrollTracker(ctx, scrollPath, eventQueryID(), config.GetMillis("tracking.scroll_flush_ms"))
			for _, arg := range args {
				pct, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return clienterrors.Validation("pct", "not a number: "+arg)
				}
				st.Record(pct)
			}
			if !st.Close(ctx) {
				output.PrintWarning("Scroll depth was not recorded")
				return nil
			}
			output.PrintSuccess("Scroll depth %d%% recorded", st.Max())
			return nil
		},
	}
	cmd.Flags().StringVar(&scrollPath, "path", "/search", "Page path")
	cmd.Flags().StringVar(&eventQuery, "query", "", "Query id (default: last search)")
	return cmd
}

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Manage recorded queries",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "end [query_id]",
		Short: "End a query (default: last search)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			last := studyApp.lastQuery()
			qid := last
			if len(args) == 1 {
				qid = args[0]
			}
			if qid == "" {
				return clienterrors.State("no query to end")
			}

			seconds := studyApp.tracker.EndQuery(cmd.Context(), qid)
			if qid == last {
				if err := studyApp.kv.Delete(lastQueryKey); err != nil {
					logger.Warn("Failed to forget query", "err", err)
				}
			}
			output.PrintSuccess("Query ended after %ds", seconds)
			return nil
		},
	})
	return cmd
}
