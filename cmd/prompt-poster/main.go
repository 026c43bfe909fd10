// Package main provides a local one-shot runner for the prompt pipeline,
// mirroring what the Lambda does per queue message. Useful for trying a
// sheet against real services from a workstation without deploying.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/prompt-poster/internal/archive"
	"github.com/fpang/prompt-poster/internal/config"
	"github.com/fpang/prompt-poster/internal/download"
	"github.com/fpang/prompt-poster/internal/instagram"
	"github.com/fpang/prompt-poster/internal/lambdaboot"
	"github.com/fpang/prompt-poster/internal/logging"
	"github.com/fpang/prompt-poster/internal/midjourney"
	"github.com/fpang/prompt-poster/internal/pipeline"
	"github.com/fpang/prompt-poster/internal/sheets"
)

// CLI flags
var (
	envFileFlag string
	dryRunFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "prompt-poster",
	Short: "Generate images for the next unprocessed prompt row and post them",
	Long: `prompt-poster runs one invocation of the prompt pipeline locally:
it reads the configured Google Sheet, selects the first unprocessed row,
generates and upscales four images for its prompt, posts them to Instagram
as one album, archives them to S3, and appends a run timestamp to the row.

Configuration comes from the environment (optionally a .env file). With
--dry-run the pipeline stops after row selection and prints the row that
would be processed.`,
	RunE:          runMain,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVar(&envFileFlag, "env-file", ".env", "Path to a .env file with configuration")
	rootCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Select the next row and exit without processing it")
}

func runMain(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(envFileFlag); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load env file %s: %w", envFileFlag, err)
	}
	logging.Init()

	ctx := context.Background()
	cfg := config.FromEnv()

	sheetClient, err := sheets.NewClient(ctx, cfg.SheetID, cfg.CredentialsFile)
	if err != nil {
		return fmt.Errorf("create sheets client: %w", err)
	}

	if dryRunFlag {
		return dryRun(ctx, cfg, sheetClient)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	awsClients := lambdaboot.InitAWS()
	pipe := pipeline.New(cfg,
		midjourney.NewClient(cfg.MidjourneyAPIKey),
		download.NewFetcher(),
		sheetClient,
		instagram.NewClient(cfg.InstagramUsername, cfg.InstagramPassword),
		archive.NewArchiver(awsClients.S3, cfg.ArchiveBucket),
	)
	return pipe.Run(ctx)
}

// dryRun reads the grid and reports which row a real run would process.
func dryRun(ctx context.Context, cfg config.Config, sheetClient *sheets.Client) error {
	grid, err := sheetClient.Read(ctx, cfg.ReadSheetName)
	if err != nil {
		return err
	}

	row, ok := pipeline.SelectRow(grid)
	if !ok {
		fmt.Println("No unprocessed rows.")
		return nil
	}
	fmt.Printf("Would process row %d: id=%s prompt=%q description=%q tags=%q\n",
		row.Index, row.ID, row.Prompt, row.Description, row.Tags)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Run failed")
		os.Exit(1)
	}
}
