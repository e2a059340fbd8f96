package sync

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgsync/pgsync/cmd/util"
	"github.com/pgsync/pgsync/internal/color"
	"github.com/pgsync/pgsync/internal/introspect"
	"github.com/pgsync/pgsync/internal/logger"
	"github.com/pgsync/pgsync/internal/plan"
	"github.com/pgsync/pgsync/internal/utils"
)

var (
	sourceDSN    string
	targetDSN    string
	sourceSchema string
	targetSchema string
	outputFile   string
	schemaOnly   bool
	procsOnly    bool
	triggersOnly bool
	noColor      bool
)

var SyncCmd = &cobra.Command{
	Use:          "sync",
	Short:        "Compare two schemas and generate an alter script",
	Long:         "Compare the structure of a source schema against a target schema and generate the SQL script that aligns the target with the source. The script is written for review, never executed.",
	RunE:         runSync,
	SilenceUsage: true,
}

func init() {
	SyncCmd.Flags().StringVar(&sourceDSN, "source-dsn", "", "Source database connection string (env: PGSYNC_SOURCE_DSN)")
	SyncCmd.Flags().StringVar(&targetDSN, "target-dsn", "", "Target database connection string; defaults to the source connection (env: PGSYNC_TARGET_DSN)")
	SyncCmd.Flags().StringVar(&sourceSchema, "source-schema", "", "Source schema name (required)")
	SyncCmd.Flags().StringVar(&targetSchema, "target-schema", "", "Target schema name (required)")
	SyncCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path; stdout when omitted")
	SyncCmd.Flags().BoolVar(&schemaOnly, "schema-only", false, "Generate only sequence, table, constraint and index operations")
	SyncCmd.Flags().BoolVar(&procsOnly, "procs-only", false, "Generate only function and procedure operations")
	SyncCmd.Flags().BoolVar(&triggersOnly, "triggers-only", false, "Generate only trigger operations")
	SyncCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored summary output")

	SyncCmd.MarkFlagRequired("source-schema")
	SyncCmd.MarkFlagRequired("target-schema")
}

func runSync(cmd *cobra.Command, args []string) error {
	if err := util.ValidateOnlyFlags(schemaOnly, procsOnly, triggersOnly); err != nil {
		return err
	}

	dsn := sourceDSN
	if dsn == "" {
		dsn = util.GetEnvWithDefault("PGSYNC_SOURCE_DSN", "")
	}
	if dsn == "" {
		return fmt.Errorf("source connection is required (use --source-dsn or PGSYNC_SOURCE_DSN)")
	}
	tdsn := targetDSN
	if tdsn == "" {
		tdsn = util.GetEnvWithDefault("PGSYNC_TARGET_DSN", "")
	}

	ctx := context.Background()
	log := logger.Get()

	sourceDB, err := utils.ConnectWithDSN(ctx, dsn)
	if err != nil {
		return fmt.Errorf("source connection failed: %w", err)
	}
	defer sourceDB.Close()

	targetDB := sourceDB
	if tdsn != "" && tdsn != dsn {
		targetDB, err = utils.ConnectWithDSN(ctx, tdsn)
		if err != nil {
			return fmt.Errorf("target connection failed: %w", err)
		}
		defer targetDB.Close()
	}

	log.Debug("comparing schemas", "source", sourceSchema, "target", targetSchema)

	planner := plan.NewSync(
		introspect.NewService(sourceDB, sourceSchema),
		introspect.NewService(targetDB, targetSchema),
		plan.Config{SchemaOnly: schemaOnly, ProcsOnly: procsOnly, TriggersOnly: triggersOnly},
	)
	result, err := planner.Execute(ctx)
	if err != nil {
		return err
	}

	for _, artifact := range result.Artifacts {
		if outputFile == "" {
			fmt.Print(artifact.Content)
			continue
		}
		if err := os.WriteFile(outputFile, []byte(artifact.Content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", outputFile, err)
		}
		log.Info("script written", "path", outputFile)
	}

	printSummary(cmd, result)
	return nil
}

func printSummary(cmd *cobra.Command, result *plan.Result) {
	c := color.New(!noColor)
	s := result.Summary
	fmt.Fprintln(cmd.ErrOrStderr())
	fmt.Fprintln(cmd.ErrOrStderr(), c.Header("Summary:"))
	fmt.Fprintf(cmd.ErrOrStderr(), "  %s objects to create\n", c.Create(fmt.Sprintf("%d", s.Created)))
	fmt.Fprintf(cmd.ErrOrStderr(), "  %s objects to update\n", c.Update(fmt.Sprintf("%d", s.Updated)))
	fmt.Fprintf(cmd.ErrOrStderr(), "  %s objects flagged for removal\n", c.Drop(fmt.Sprintf("%d", s.Dropped)))
	if s.Manual > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s TODO markers need manual review\n", c.Strong(fmt.Sprintf("%d", s.Manual)))
	}
}
