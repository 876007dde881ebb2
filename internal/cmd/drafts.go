package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/zfogg/searchstudy/pkg/config"
	"github.com/zfogg/searchstudy/pkg/drafts"
	clienterrors "github.com/zfogg/searchstudy/pkg/errors"
	"github.com/zfogg/searchstudy/pkg/output"
	"github.com/zfogg/searchstudy/pkg/pages"
)

var (
	answersData string
	answersFile string
	clearAll    bool
)

func parsePage(arg string) (pages.PageID, error) {
	id := pages.PageID(arg)
	if !pages.Known(id) {
		return "", clienterrors.Validation("page", fmt.Sprintf("unknown page %q", arg))
	}
	return id, nil
}

// readAnswers returns the JSON passed with --data or --file, or nil when
// neither was given. --file - reads stdin.
func readAnswers() ([]byte, error) {
	switch {
	case answersData != "" && answersFile != "":
		return nil, clienterrors.Validation("data", "use either --data or --file")
	case answersData != "":
		return []byte(answersData), nil
	case answersFile == "-":
		return io.ReadAll(output.In)
	case answersFile != "":
		return os.ReadFile(answersFile)
	}
	return nil, nil
}

func addAnswerFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&answersData, "data", "", "Answers as a JSON object")
	cmd.Flags().StringVarP(&answersFile, "file", "f", "", "Read answers from a JSON file (- for stdin)")
}

func newDraftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Manage answers in progress",
	}

	save := &cobra.Command{
		Use:   "save <page>",
		Short: "Save answers as the page's draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := parsePage(args[0])
			if err != nil {
				return err
			}
			raw, err := readAnswers()
			if err != nil {
				return err
			}
			if raw == nil {
				return clienterrors.Validation("data", "pass answers with --data or --file")
			}
			p, err := pages.Decode(page, raw)
			if err != nil {
				return clienterrors.Validation("data", err.Error())
			}

			ctx := cmd.Context()
			saver := drafts.NewAutosaver(ctx, studyApp.drafts, config.GetMillis("drafts.autosave_ms"))
			defer saver.Stop()
			if existing := studyApp.drafts.LoadDraft(ctx, page); existing != nil {
				saver.Prime(existing)
			}
			saver.Update(p)
			if saver.Flush(ctx) {
				output.PrintSuccess("Draft saved for %s", page)
			} else {
				output.PrintInfo("Nothing new to save for %s", page)
			}
			return nil
		},
	}
	addAnswerFlags(save)

	load := &cobra.Command{
		Use:   "load <page>",
		Short: "Show the page's draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := parsePage(args[0])
			if err != nil {
				return err
			}
			p := studyApp.drafts.LoadDraft(cmd.Context(), page)
			if p == nil {
				output.PrintInfo("No draft for %s", page)
				return nil
			}
			return output.Print(string(page), p)
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear [page]",
		Short: "Discard a draft, or every draft with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearAll {
				studyApp.drafts.ClearAll(cmd.Context())
				output.PrintSuccess("All drafts cleared")
				return nil
			}
			if len(args) == 0 {
				return clienterrors.Validation("page", "name a page or pass --all")
			}
			page, err := parsePage(args[0])
			if err != nil {
				return err
			}
			studyApp.drafts.ClearDraft(cmd.Context(), page)
			output.PrintSuccess("Draft cleared for %s", page)
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&clearAll, "all", false, "Clear drafts for every page")

	list := &cobra.Command{
		Use:   "list",
		Short: "List pages that have a draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(pages.IDs()))
			for _, id := range pages.IDs() {
				has := "no"
				if studyApp.drafts.HasDraft(cmd.Context(), id) {
					has = "yes"
				}
				rows = append(rows, []string{string(id), has})
			}
			output.PrintTable([]string{"Page", "Draft"}, rows)
			return nil
		},
	}

	cmd.AddCommand(save, load, clearCmd, list)
	return cmd
}
