package cmd

import (
	"github.com/spf13/cobra"
	"github.com/zfogg/searchstudy/pkg/api"
	"github.com/zfogg/searchstudy/pkg/output"
)

var consentYes bool

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the participant id and session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			pid := studyApp.sessions.EnsureParticipantID()
			record := map[string]interface{}{
				"participant_id": pid,
				"session_id":     optionalString(studyApp.sessions.SessionID()),
				"state":          studyApp.sessions.State().String(),
			}
			return output.PrintRecord("Participant", record)
		},
	}
}

func newConsentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consent",
		Short: "Confirm consent and start a fresh session",
		Long:  "Confirm consent. Any open session is closed and local drafts are discarded before a new session starts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !consentYes {
				ok, err := output.Confirm("I have read the study information and agree to take part.")
				if err != nil {
					return err
				}
				if !ok {
					output.PrintWarning("Consent not given; nothing was recorded")
					return nil
				}
			}

			sid, err := studyApp.sessions.ConfirmConsent(cmd.Context())
			if err != nil {
				return err
			}
			output.PrintSuccess("Consent recorded. Session %s started", sid)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&consentYes, "yes", "y", false, "Confirm without prompting")
	return cmd
}

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the study session",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ensure",
		Short: "Resume the open session or start one",
		RunE: func(cmd *cobra.Command, args []string) error {
			sid, err := studyApp.sessions.EnsureSession(cmd.Context())
			if err != nil {
				return err
			}
			output.PrintSuccess("Session %s is active", sid)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "end",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := studyApp.sessions.EndSession(cmd.Context()); err != nil {
				return err
			}
			output.PrintSuccess("Session ended")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the session state and its server-side counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			sid := studyApp.sessions.SessionID()
			record := map[string]interface{}{
				"session_id": optionalString(sid),
				"state":      studyApp.sessions.State().String(),
			}
			if sid != "" {
				session, err := studyApp.api.GetSession(cmd.Context(), sid)
				switch {
				case api.IsNotFound(err):
					output.PrintWarning("The server has no record of session %s", sid)
				case err != nil:
					return err
				default:
					record["query_count"] = session.QueryCount
					record["clicked_results"] = session.TotalClickedResultsCount
					record["scroll_depth_max"] = session.ScrollDepthMax
					record["ended_at"] = session.SessionEndTime
				}
			}
			return output.PrintRecord("Session", record)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "summary [session_id]",
		Short: "Show search and click aggregates for a session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sid := studyApp.sessions.SessionID()
			if len(args) == 1 {
				sid = args[0]
			}
			if sid == "" {
				output.PrintWarning("No session; pass a session id")
				return nil
			}

			summary, err := studyApp.api.SessionSummary(cmd.Context(), sid)
			if err != nil {
				return err
			}
			return output.PrintRecord("Summary", map[string]interface{}{
				"session_id":         summary.SessionID,
				"total_searches":     summary.TotalSearches,
				"total_clicks":       summary.TotalClicks,
				"avg_time_per_query": summary.AvgTimePerQuery,
				"clicks_per_query":   summary.ClicksPerQuery,
				"queries_per_minute": summary.QueriesPerMinute,
			})
		},
	})
	return cmd
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
