package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zfogg/searchstudy/pkg/api"
	clienterrors "github.com/zfogg/searchstudy/pkg/errors"
	"github.com/zfogg/searchstudy/pkg/output"
	"github.com/zfogg/searchstudy/pkg/pages"
)

func newSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <page>",
		Short: "Submit a page's answers",
		Long: `Submit answers for background_survey, task_instruction, result_log or
post_task_survey. Without --data or --file the page's draft is submitted.
A successful submission clears the draft.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := parsePage(args[0])
			if err != nil {
				return err
			}

			var p pages.Page
			raw, err := readAnswers()
			if err != nil {
				return err
			}
			if raw != nil {
				if p, err = pages.Decode(page, raw); err != nil {
					return clienterrors.Validation("data", err.Error())
				}
			} else if p = studyApp.drafts.LoadDraft(cmd.Context(), page); p == nil {
				return clienterrors.Validation("data", fmt.Sprintf("no draft for %s; pass --data or --file", page))
			}

			id, err := submit(cmd.Context(), p)
			if api.IsCode(err, "ATTENTION_CHECK_FAILED") {
				return api.ToClientError(err).WithSuggestion("Re-read question 8 and answer exactly as it asks.")
			}
			if err != nil {
				return err
			}
			output.PrintSuccess("Submitted %s (%s)", page, id)
			return nil
		},
	}
	addAnswerFlags(cmd)
	return cmd
}

func submit(ctx context.Context, p pages.Page) (string, error) {
	switch answers := p.(type) {
	case *pages.BackgroundSurvey:
		return studyApp.sessions.SubmitBackgroundSurvey(ctx, answers)
	case *pages.TaskInstruction:
		return studyApp.sessions.SubmitTaskInstruction(ctx, answers)
	case *pages.ResultLog:
		return studyApp.sessions.SaveResultLog(ctx, answers)
	case *pages.PostTaskSurvey:
		return studyApp.sessions.SubmitPostTaskSurvey(ctx, answers)
	default:
		return "", clienterrors.Validation("page", fmt.Sprintf("%s has no submission; save it as a draft instead", p.PageID()))
	}
}
