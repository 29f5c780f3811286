package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/grant-matcher/internal/logger"
	"github.com/spigell/grant-matcher/internal/organization"
)

var orgsCmd = &cobra.Command{
	Use:   "orgs",
	Short: "List configured organization profiles",
	Run: func(_ *cobra.Command, _ []string) {
		runOrgsList()
	},
}

var orgsImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import organization profiles from a YAML file into the SQLite store",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		runOrgsImport(args[0])
	},
}

func init() {
	rootCmd.AddCommand(orgsCmd)
	orgsCmd.AddCommand(orgsImportCmd)
}

func runOrgsList() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	provider, closeProvider, err := newOrganizations(ctx, config.Organizations, logger)
	if err != nil {
		logger.Fatal("opening organizations", zap.Error(err))
	}
	if closeProvider != nil {
		defer closeProvider()
	}

	orgs, err := provider.List(ctx)
	if err != nil {
		logger.Fatal("listing organizations", zap.Error(err))
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLOCATION\tSTAFF\tFOUNDED")
	for _, org := range orgs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", org.ID, org.Name, org.Location(), org.StaffCount, org.FoundedYear)
	}
	if err := tw.Flush(); err != nil {
		logger.Fatal("writing organizations", zap.Error(err))
	}
}

func runOrgsImport(path string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config.Organizations == nil || config.Organizations.SQLite == "" {
		logger.Fatal("organizations.sqlite must be configured to import profiles")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal("reading profiles", zap.String("path", path), zap.Error(err))
	}
	orgs, err := organization.ParseYAML(data)
	if err != nil {
		logger.Fatal("parsing profiles", zap.String("path", path), zap.Error(err))
	}

	store, err := organization.OpenSQLite(ctx, config.Organizations.SQLite, logger)
	if err != nil {
		logger.Fatal("opening the organization store", zap.Error(err))
	}
	defer store.Close()

	for _, org := range orgs {
		if err := store.Put(ctx, org); err != nil {
			logger.Fatal("importing profile", zap.String("org", org.ID), zap.Error(err))
		}
	}

	logger.Info("profiles imported", zap.Int("count", len(orgs)), zap.String("database", config.Organizations.SQLite))
}
