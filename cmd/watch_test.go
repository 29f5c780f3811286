package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/grant-matcher/internal/grants"
	"github.com/spigell/grant-matcher/internal/matching"
)

func newWatchEngine(t *testing.T, dismissedPath string) *matching.Engine {
	t.Helper()

	config := &Config{
		Organizations: &OrganizationsConfig{File: writeFixture(t, "orgs.yaml", organizationsFixture)},
		Sources: []*SourceConfig{
			{Name: "fixtures", Type: "file", Kind: "foundation", Path: writeFixture(t, "opps.yaml", opportunitiesFixture), All: true},
		},
		Filters: &FiltersConfig{DismissedFile: dismissedPath},
	}

	engine, cleanup, err := newEngine(context.Background(), config, zap.NewNop())
	if err != nil {
		t.Fatalf("newEngine: %v", err)
	}
	t.Cleanup(func() { cleanup.Close(zap.NewNop()) })
	return engine
}

func TestWatchOnceDismissesReportedMatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dismissed.json")
	engine := newWatchEngine(t, path)

	core, logs := observer.New(zapcore.InfoLevel)
	watchOnce(context.Background(), zap.New(core), engine, "org-1", 0, true, path)

	if logs.FilterMessage("opportunity").Len() != 1 {
		t.Fatalf("expected one reported opportunity, got %d", logs.FilterMessage("opportunity").Len())
	}
	if logs.FilterMessage("reported opportunities dismissed").Len() != 1 {
		t.Fatalf("expected dismissal to be logged")
	}

	dismissed, err := grants.LoadDismissed(path)
	if err != nil {
		t.Fatalf("LoadDismissed: %v", err)
	}
	if len(dismissed.Items) != 1 {
		t.Fatalf("expected one dismissed opportunity, got %d", len(dismissed.Items))
	}
	item := dismissed.Items[0]
	if item.Actor != grants.DismissActorAuto || item.Reason != autoDismissReason || item.ID == "" {
		t.Fatalf("unexpected dismissal record: %+v", item)
	}

	// The next scheduled run must not report the same opportunity again.
	core, logs = observer.New(zapcore.InfoLevel)
	watchOnce(context.Background(), zap.New(core), engine, "org-1", 0, true, path)
	if logs.FilterMessage("opportunity").Len() != 0 {
		t.Fatalf("expected dismissed opportunity to be filtered out")
	}
	if logs.FilterMessage("no new opportunities").Len() != 1 {
		t.Fatalf("expected an empty run to be logged")
	}
}

func TestWatchOnceWithoutDismissalLeavesFileAlone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dismissed.json")
	engine := newWatchEngine(t, path)

	watchOnce(context.Background(), zap.NewNop(), engine, "org-1", 0, false, path)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no dismissed file to be written, got %v", err)
	}
}

func TestWatchOnceLogsUnknownOrganization(t *testing.T) {
	engine := newWatchEngine(t, "")

	core, logs := observer.New(zapcore.ErrorLevel)
	watchOnce(context.Background(), zap.New(core), engine, "missing", 0, true, "")

	if logs.FilterMessage("scheduled matching failed").Len() != 1 {
		t.Fatalf("expected failed run to be logged")
	}
}
