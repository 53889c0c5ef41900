package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/app"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/eval"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/ingestion"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
)

var (
	username string
	email    string
	password string

	projectName string

	scenariosPath string
	reportPath    string
)

var createUserCmd = &cobra.Command{
	Use:   "createuser",
	Short: "Create an API user",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.Service.CreateUser(cmd.Context(), username, email, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %d)\n", user.Username, user.ID)
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Index brochure files for retrieval",
	Long: `Stores each brochure (PDF or text) under the upload directory and indexes
its chunks. Without --project the project name is read from the file name.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		for _, path := range args {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			doc, err := a.Ingestion.StoreUpload(ctx, ingestion.Upload{
				Filename:    filepath.Base(path),
				ContentType: mime.TypeByExtension(filepath.Ext(path)),
				Body:        f,
			}, projectName, nil)
			f.Close()
			if err != nil {
				return err
			}
			res, err := a.Ingestion.Ingest(ctx, doc)
			if err != nil {
				return fmt.Errorf("failed to ingest %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d chunks into %s\n", path, res.ChunksIndexed, res.CollectionName)
		}
		return nil
	},
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Score the agent against evaluation scenarios",
	Long: `Runs each scenario through the agent with deterministic backends and
writes keyword coverage and route accuracy scores as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		scenarios, err := eval.DefaultScenarios()
		if scenariosPath != "" {
			scenarios, err = eval.LoadScenarios(scenariosPath)
		}
		if err != nil {
			return err
		}

		agent, err := eval.NewStubAgent(ctx)
		if err != nil {
			return err
		}
		lead, campaign := eval.SeedLead()
		report := eval.Run(ctx, agent, lead, campaign, scenarios)
		if err := eval.WriteReport(reportPath, report); err != nil {
			return err
		}

		for _, res := range report.TestResults {
			status := "PASS"
			if !res.Success {
				status = "FAIL"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s (route %s)\n", status, res.Name, res.Route)
			for _, m := range res.Metrics {
				fmt.Fprintf(cmd.OutOrStdout(), "    %s %.2f: %s\n", m.Name, m.Score, m.Reason)
			}
		}
		logx.Info().Int("passed", report.Passed).Int("total", report.Total).Str("report", reportPath).
			Msg("evaluation finished")
		if report.Passed != report.Total {
			return fmt.Errorf("%d of %d scenarios failed", report.Total-report.Passed, report.Total)
		}
		return nil
	},
}

func init() {
	createUserCmd.Flags().StringVar(&username, "username", "", "login name")
	createUserCmd.Flags().StringVar(&email, "email", "", "contact email")
	createUserCmd.Flags().StringVar(&password, "password", "", "login password")
	_ = createUserCmd.MarkFlagRequired("username")
	_ = createUserCmd.MarkFlagRequired("password")

	ingestCmd.Flags().StringVar(&projectName, "project", "", "project the brochures belong to")

	evalCmd.Flags().StringVar(&scenariosPath, "scenarios", "", "YAML scenarios file (defaults to the built-in set)")
	evalCmd.Flags().StringVar(&reportPath, "report", eval.DefaultReportPath, "where to write the JSON scores")
}
