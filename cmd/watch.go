package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/grant-matcher/internal/grants"
	"github.com/spigell/grant-matcher/internal/logger"
	"github.com/spigell/grant-matcher/internal/matching"
)

const (
	defaultSchedule   = "0 8 * * 1"
	autoDismissReason = "reported by watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run matching on a cron schedule and report new opportunities",
	Run: func(cmd *cobra.Command, _ []string) {
		runWatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("org", "", "organization id to match")
	watchCmd.Flags().String("schedule", defaultSchedule, "cron schedule (minute hour day month weekday)")
	watchCmd.Flags().String("timezone", "Local", "timezone the schedule is evaluated in")
	watchCmd.Flags().IntP("limit", "l", 0, "maximum number of matches per run")
	watchCmd.Flags().Bool("dismiss-reported", false, "add reported opportunities to the dismissed file so they are reported once")
	watchCmd.Flags().Bool("run-now", false, "run once immediately before waiting for the schedule")

	watchCmd.MarkFlagRequired("org")
}

// cronLogger routes cron's own messages through zap.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

func runWatch(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	engine, cleanup, err := newEngine(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the matching engine", zap.Error(err))
	}
	defer cleanup.Close(logger)

	orgID, _ := cmd.Flags().GetString("org")
	schedule, _ := cmd.Flags().GetString("schedule")
	timezone, _ := cmd.Flags().GetString("timezone")
	limit, _ := cmd.Flags().GetInt("limit")
	dismissReported, _ := cmd.Flags().GetBool("dismiss-reported")
	runNow, _ := cmd.Flags().GetBool("run-now")

	path := dismissedFile(config)
	if dismissReported && path == "" {
		logger.Fatal("--dismiss-reported requires filters.dismissed-file")
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Fatal("loading timezone", zap.String("timezone", timezone), zap.Error(err))
	}

	cl := cronLogger{logger: logger}
	scheduler := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	job := func() {
		watchOnce(ctx, logger, engine, orgID, limit, dismissReported, path)
	}

	if _, err := scheduler.AddFunc(schedule, job); err != nil {
		logger.Fatal("parsing schedule", zap.String("schedule", schedule), zap.Error(err))
	}

	if runNow {
		job()
	}

	scheduler.Start()
	logger.Info("watching for new opportunities",
		zap.String("org", orgID),
		zap.String("schedule", schedule),
		zap.Time("next_run", scheduler.Entries()[0].Next),
	)

	<-ctx.Done()
	logger.Info("stopping the scheduler")
	<-scheduler.Stop().Done()
}

func watchOnce(ctx context.Context, logger *zap.Logger, engine *matching.Engine, orgID string, limit int, dismissReported bool, path string) {
	report, err := engine.Match(ctx, orgID, limit)
	if err != nil {
		logger.Error("scheduled matching failed", zap.String("org", orgID), zap.Error(err))
		return
	}

	runLog := logger.With(zap.String("run_id", report.RunID))
	if len(report.Matches) == 0 {
		runLog.Info("no new opportunities", zap.String("reason", report.Diagnostic))
		return
	}

	for _, m := range report.Matches {
		runLog.Info("opportunity",
			zap.String("tier", m.TierLabel),
			zap.Float64("composite", m.Composite),
			zap.String("title", m.Candidate.Title),
			zap.String("funder", m.Candidate.Funder),
			zap.String("deadline", deadline(m.Candidate)),
			zap.String("url", m.Candidate.URL),
		)
	}

	if !dismissReported {
		return
	}

	dismissed, err := grants.LoadDismissed(path)
	if err != nil {
		runLog.Error("loading dismissed file", zap.Error(err))
		return
	}
	dismissed.Append(report.Candidates().ToDismissed(grants.DismissActorAuto, autoDismissReason))
	if err := dismissed.ToFile(path); err != nil {
		runLog.Error("writing dismissed file", zap.Error(err))
		return
	}
	runLog.Info("reported opportunities dismissed", zap.Int("count", len(report.Matches)), zap.String("filename", path))
}
