package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/zfogg/searchstudy/pkg/api"
	"github.com/zfogg/searchstudy/pkg/config"
	clienterrors "github.com/zfogg/searchstudy/pkg/errors"
	"github.com/zfogg/searchstudy/pkg/logger"
	"github.com/zfogg/searchstudy/pkg/output"
)

const version = "0.1.0"

var (
	verbose    bool
	configPath string
	outputFmt  string

	studyApp *app
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "studyctl",
		Short: "studyctl - participant client for the search behavior study",
		Long: `studyctl walks a participant through the search study from the
terminal: consent, background survey, task instructions, the search task
with interaction tracking, the result log and the post-task survey.
Answers in progress are kept as drafts between invocations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(configPath); err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}
			logger.Init(verbose)

			if cmd.Flags().Changed("output") || config.GetString("output.format") == "" {
				if !output.ValidFormat(outputFmt) {
					return clienterrors.Validation("output", "must be text, json or table")
				}
				config.Set("output.format", outputFmt)
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			studyApp = a
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ~/.config/searchstudy/studyctl/config.toml)")
	root.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "Output format: text, json, table")

	root.AddCommand(
		newWhoamiCmd(),
		newConsentCmd(),
		newSessionCmd(),
		newDraftCmd(),
		newSubmitCmd(),
		newSearchCmd(),
		newClickCmd(),
		newHoverCmd(),
		newScrollCmd(),
		newQueryCmd(),
		newVersionCmd(),
	)
	return root
}

// Run executes studyctl with args and returns the exit code
func Run(args []string, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprint(stderr, clienterrors.FormatError(api.ToClientError(err)))
		return 1
	}
	return 0
}

// Execute runs studyctl with the process arguments
func Execute() {
	os.Exit(Run(os.Args[1:], os.Stderr))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show studyctl version",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(output.Out, "studyctl v%s\n", version)
		},
	}
}
