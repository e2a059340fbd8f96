package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pgsync/pgsync/cmd/util"
	"github.com/pgsync/pgsync/internal/introspect"
	"github.com/pgsync/pgsync/internal/logger"
	"github.com/pgsync/pgsync/internal/plan"
	"github.com/pgsync/pgsync/internal/utils"
)

var (
	host         string
	port         int
	db           string
	user         string
	password     string
	schema       string
	outputDir    string
	schemaOnly   bool
	procsOnly    bool
	triggersOnly bool
)

var ExportCmd = &cobra.Command{
	Use:          "export",
	Short:        "Export a schema as CREATE scripts",
	Long:         "Introspect a schema and write its full structure as SQL scripts: schema.sql for sequences, tables, constraints and indexes, procs.sql for functions and procedures, triggers.sql for triggers.",
	PreRunE:      util.PreRunEWithConnectionEnvVars(&db, &user, &host, &port),
	RunE:         runExport,
	SilenceUsage: true,
}

func init() {
	ExportCmd.Flags().StringVar(&host, "host", "localhost", "Database server host (env: PGHOST)")
	ExportCmd.Flags().IntVar(&port, "port", 5432, "Database server port (env: PGPORT)")
	ExportCmd.Flags().StringVar(&db, "db", "", "Database name (env: PGDATABASE)")
	ExportCmd.Flags().StringVar(&user, "user", "", "Database user name (env: PGUSER)")
	ExportCmd.Flags().StringVar(&password, "password", "", "Database password (env: PGPASSWORD)")
	ExportCmd.Flags().StringVar(&schema, "schema", "public", "Schema to export")
	ExportCmd.Flags().StringVarP(&outputDir, "output-dir", "d", ".", "Directory to write the script files into")
	ExportCmd.Flags().BoolVar(&schemaOnly, "schema-only", false, "Write only schema.sql")
	ExportCmd.Flags().BoolVar(&procsOnly, "procs-only", false, "Write only procs.sql")
	ExportCmd.Flags().BoolVar(&triggersOnly, "triggers-only", false, "Write only triggers.sql")
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := util.ValidateOnlyFlags(schemaOnly, procsOnly, triggersOnly); err != nil {
		return err
	}

	if password == "" {
		password = util.GetEnvWithDefault("PGPASSWORD", "")
	}

	ctx := context.Background()
	log := logger.Get()

	config := &utils.ConnectionConfig{
		Host:     host,
		Port:     port,
		Database: db,
		User:     user,
		Password: password,
		SSLMode:  "prefer",
		AppName:  "pgsync",
	}
	conn, err := utils.Connect(ctx, config)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()

	log.Debug("exporting schema", "schema", schema, "database", db)

	planner := plan.NewExport(
		introspect.NewService(conn, schema),
		plan.Config{SchemaOnly: schemaOnly, ProcsOnly: procsOnly, TriggersOnly: triggersOnly},
	)
	result, err := planner.Execute(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, artifact := range result.Artifacts {
		path := filepath.Join(outputDir, artifact.Name)
		if err := os.WriteFile(path, []byte(artifact.Content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		log.Info("script written", "path", path)
	}
	return nil
}
