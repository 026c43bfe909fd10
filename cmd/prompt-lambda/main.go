// Package main provides the Lambda entry point for the prompt pipeline.
//
// The Lambda is triggered by one queue message per invocation; the message
// payload is decoded and logged but not otherwise consumed. Each invocation
// processes at most one unprocessed spreadsheet row end to end: generate,
// download, post, archive, mark processed.
//
// Credentials are loaded at cold start: Google service-account JSON for the
// Sheets API, and SSM Parameter Store (env-overridable) for the Midjourney
// API key and the Instagram account.
package main

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

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

var coldStart = true

var pipe *pipeline.Pipeline

func init() {
	initStart := time.Now()
	logging.Init()

	cfg := config.FromEnv()
	awsClients := lambdaboot.InitAWS()
	lambdaboot.FillSecrets(awsClients.SSM, &cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	sheetClient, err := sheets.NewClient(context.Background(), cfg.SheetID, cfg.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Sheets client")
	}

	pipe = pipeline.New(cfg,
		midjourney.NewClient(cfg.MidjourneyAPIKey),
		download.NewFetcher(),
		sheetClient,
		instagram.NewClient(cfg.InstagramUsername, cfg.InstagramPassword),
		archive.NewArchiver(awsClients.S3, cfg.ArchiveBucket),
	)

	lambdaboot.StartupLog("prompt-lambda", initStart).
		S3Bucket("archive", cfg.ArchiveBucket).
		Sheet("prompts", cfg.ReadSheetName).
		SSMParam("midjourneyKey", logging.EnvOrDefault("SSM_MIDJOURNEY_KEY_PARAM", lambdaboot.DefaultMidjourneyKeyParam)).
		SSMParam("instagramUsername", logging.EnvOrDefault("SSM_INSTAGRAM_USERNAME_PARAM", lambdaboot.DefaultInstagramUserParam)).
		SSMParam("instagramPassword", logging.EnvOrDefault("SSM_INSTAGRAM_PASSWORD_PARAM", lambdaboot.DefaultInstagramPasswordParam)).
		Config("writeSheet", cfg.WriteSheetName).
		Feature("defaultTags", cfg.DefaultTags != "").
		Log()
}

func main() {
	lambda.Start(handler)
}

// handler logs the trigger payload and runs the pipeline once. An error
// return surfaces as a failed invocation in the Lambda runtime.
func handler(ctx context.Context, sqsEvent events.SQSEvent) error {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "prompt-lambda").Msg("Cold start, first invocation")
	}

	// The message payload only triggers the run; log it for traceability.
	for _, record := range sqsEvent.Records {
		log.Info().
			Str("messageId", record.MessageId).
			Str("body", record.Body).
			Msg("Trigger message received")
	}

	return pipe.Run(ctx)
}
