package cmd

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/grant-matcher/internal/connector"
	"github.com/spigell/grant-matcher/internal/logger"
	"github.com/spigell/grant-matcher/internal/matching"
)

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Check and score a single opportunity for an organization",
	Run: func(cmd *cobra.Command, _ []string) {
		runExplain(cmd)
	},
}

func init() {
	rootCmd.AddCommand(explainCmd)

	explainCmd.Flags().String("org", "", "organization id")
	explainCmd.Flags().StringP("candidate", "c", "", "YAML or JSON file describing one opportunity")
	explainCmd.Flags().StringP("output", "o", outputText, "output format: text or json")

	explainCmd.MarkFlagRequired("org")
	explainCmd.MarkFlagRequired("candidate")
}

func runExplain(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	orgID, _ := cmd.Flags().GetString("org")
	path, _ := cmd.Flags().GetString("candidate")
	output, _ := cmd.Flags().GetString("output")

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal("reading the opportunity", zap.String("path", path), zap.Error(err))
	}
	candidate, err := connector.ParseCandidate(data)
	if err != nil {
		logger.Fatal("parsing the opportunity", zap.String("path", path), zap.Error(err))
	}

	engine, cleanup, err := newEngine(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the matching engine", zap.Error(err))
	}
	defer cleanup.Close(logger)

	match, err := engine.Explain(ctx, orgID, candidate)
	if err != nil {
		logger.Fatal("explaining the opportunity", zap.String("org", orgID), zap.Error(err))
	}

	if err := writeExplanation(os.Stdout, match, output); err != nil {
		logger.Fatal("writing the explanation", zap.Error(err))
	}

	if !match.Eligible {
		logger.Warn("opportunity is not eligible", zap.String("reason", match.EligibilityReason))
	}
}

func writeExplanation(w io.Writer, match *matching.Match, format string) error {
	if format == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(match)
	}
	return writeMatch(w, match)
}
