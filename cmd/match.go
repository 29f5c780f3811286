package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/grant-matcher/internal/grants"
	"github.com/spigell/grant-matcher/internal/logger"
	"github.com/spigell/grant-matcher/internal/matching"
)

const (
	PromptShow            = "Show matches"
	PromptDetails         = "Show match details"
	PromptRejections      = "Show rejected opportunities"
	PromptReportToFile    = "Dump report to file"
	PromptDismissAll      = "Dismiss all shown opportunities"
	PromptExit            = "Exit"
	PromptBack            = "back"
	outputText            = "text"
	outputJSON            = "json"
	dismissReasonReviewed = "reviewed in match session"
)

var errExit = errors.New("exit requested")

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Find and rank grant opportunities for an organization",
	Run: func(cmd *cobra.Command, _ []string) {
		runMatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().String("org", "", "organization id to match")
	matchCmd.Flags().IntP("limit", "l", 0, "maximum number of matches (0 means the organization's capacity)")
	matchCmd.Flags().BoolP("auto-approve", "y", false, "print the matches and exit without the interactive menu")
	matchCmd.Flags().StringP("output", "o", outputText, "output format: text or json")
	matchCmd.Flags().StringP("dismissed-file", "e", "", "file with dismissed opportunities. Default is unset.")

	matchCmd.MarkFlagRequired("org")
	viper.BindPFlag("filters.dismissed-file", matchCmd.Flags().Lookup("dismissed-file"))
}

func runMatch(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the grant-matcher", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	engine, cleanup, err := newEngine(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the matching engine", zap.Error(err))
	}
	defer cleanup.Close(logger)

	orgID, _ := cmd.Flags().GetString("org")
	limit, _ := cmd.Flags().GetInt("limit")
	output, _ := cmd.Flags().GetString("output")

	report, err := engine.Match(ctx, orgID, limit)
	if err != nil {
		if errors.Is(err, matching.ErrInvalidOrganization) {
			logger.Fatal("organization cannot be matched", zap.String("org", orgID), zap.Error(err))
		}
		logger.Fatal("matching failed", zap.Error(err))
	}

	logger.Info("matching finished",
		zap.String("run_id", report.RunID),
		zap.Int("matches", len(report.Matches)),
		zap.Int("fetched", report.Funnel.Fetched),
		zap.Int("failed_sources", countFailed(report)),
	)

	if len(report.Matches) == 0 {
		logger.Info("exiting", zap.String("reason", report.Diagnostic))
		return
	}

	autoApprove, _ := cmd.Flags().GetBool("auto-approve")
	if autoApprove || output == outputJSON {
		if err := writeReport(os.Stdout, report, output); err != nil {
			logger.Fatal("writing report", zap.Error(err))
		}
		return
	}

	menu(logger, config, report)
}

func menu(logger *zap.Logger, config *Config, report *matching.Report) {
	items := []string{PromptShow, PromptDetails, PromptRejections, PromptReportToFile}
	if dismissedFile(config) != "" {
		items = append(items, PromptDismissAll)
	}
	items = append(items, PromptExit)

	prompt := promptui.Select{
		Label: fmt.Sprintf("%d matches for %s. What next?", len(report.Matches), report.OrganizationName),
		Items: items,
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, logger, config, report); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, logger *zap.Logger, config *Config, report *matching.Report) error {
	switch action {
	case PromptShow:
		return writeReport(os.Stdout, report, outputText)
	case PromptDetails:
		return showDetails(report)
	case PromptRejections:
		pretty, _ := json.MarshalIndent(report.Rejections, "", "  ")
		logger.Info(string(pretty), zap.Int("rejected count", len(report.Rejections)))
		return nil
	case PromptReportToFile:
		filename, err := grants.DumpToTmpFile("matches_*.json", report)
		if err != nil {
			return fmt.Errorf("dump report to file: %w", err)
		}
		logger.Info("dumping report to file", zap.String("filename", filename))
		return nil
	case PromptDismissAll:
		return dismiss(logger, dismissedFile(config), report.Candidates())
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func showDetails(report *matching.Report) error {
	items := make([]string, 0, len(report.Matches)+1)
	for _, m := range report.Matches {
		items = append(items, fmt.Sprintf("%s %.1f %s / %s", m.Candidate.ID, m.Composite, m.Candidate.Title, m.Candidate.Funder))
	}

	selectPrompt := promptui.Select{
		Label: "Choose an opportunity and press ENTER",
		Items: append(items, PromptBack),
	}

	_, selected, err := selectPrompt.Run()
	if err != nil {
		return err
	}
	if selected == PromptBack {
		return nil
	}

	id := strings.Split(selected, " ")[0]
	for _, m := range report.Matches {
		if m.Candidate.ID == id {
			return writeMatch(os.Stdout, m)
		}
	}
	return fmt.Errorf("there is no such opportunity id %s", id)
}

func dismiss(logger *zap.Logger, path string, candidates *grants.Candidates) error {
	dismissed, err := grants.LoadDismissed(path)
	if err != nil {
		return err
	}

	dismissed.Append(candidates.ToDismissed(grants.DismissActorUser, dismissReasonReviewed))
	if err := dismissed.ToFile(path); err != nil {
		return err
	}

	logger.Info("appended to dismissed file", zap.String("filename", path), zap.Int("count", candidates.Len()))
	return nil
}

func dismissedFile(config *Config) string {
	if config.Filters != nil && config.Filters.DismissedFile != "" {
		return config.Filters.DismissedFile
	}
	return viper.GetString("filters.dismissed-file")
}

func countFailed(report *matching.Report) int {
	n := 0
	for _, s := range report.Sources {
		if s.Failed() {
			n++
		}
	}
	return n
}

func writeReport(w io.Writer, report *matching.Report, format string) error {
	if format == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(w, "%s (%s, threshold %.0f, up to %d results)\n", report.OrganizationName, report.Maturity, report.Threshold, report.MaxResults)

	groups := report.Grouped()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, tier := range matching.Tiers {
		matches := groups[tier]
		if len(matches) == 0 {
			continue
		}
		fmt.Fprintf(tw, "\n%s\n", tier.Label())
		for _, m := range matches {
			c := m.Candidate
			fmt.Fprintf(tw, "  %.1f\t%s\t%s\t%s\t%s\n", m.Composite, c.Title, c.Funder, deadline(c), c.URL)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if report.Diagnostic != "" {
		fmt.Fprintf(w, "\n%s\n", report.Diagnostic)
	}
	return nil
}

func writeMatch(w io.Writer, m *matching.Match) error {
	c := m.Candidate
	fmt.Fprintf(w, "%s\n%s\n\n", c.Title, m.Explanation)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "funder\t%s\n", c.Funder)
	fmt.Fprintf(tw, "award\t%s\n", award(c))
	fmt.Fprintf(tw, "deadline\t%s\n", deadline(c))
	fmt.Fprintf(tw, "url\t%s\n", c.URL)
	fmt.Fprintf(tw, "eligibility\t%s\n", m.EligibilityReason)
	for _, d := range m.Scores.Ranked() {
		fmt.Fprintf(tw, "%s\t%.0f\n", d.Label(), m.Scores.Get(d))
	}
	return tw.Flush()
}

func deadline(c *grants.Candidate) string {
	if c.Deadline == nil {
		return "rolling"
	}
	return c.Deadline.Format("2006-01-02")
}

func award(c *grants.Candidate) string {
	if amount, ok := c.MaxAward(); ok {
		return grants.FormatAmount(amount)
	}
	return "unknown"
}
