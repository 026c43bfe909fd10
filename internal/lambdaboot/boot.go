// Package lambdaboot provides shared Lambda cold-start bootstrap logic.
//
// The prompt Lambda needs AWS config, an S3 client, SSM-backed secrets, and
// startup logging; this package extracts those init patterns so the entry
// point's init() is a short composition of helpers.
package lambdaboot

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/prompt-poster/internal/config"
	"github.com/fpang/prompt-poster/internal/logging"
)

// Default SSM parameter paths for secret material. Each can be overridden
// via the corresponding SSM_*_PARAM environment variable.
const (
	DefaultMidjourneyKeyParam     = "/prompt-poster/prod/midjourney-api-key"
	DefaultInstagramUserParam     = "/prompt-poster/prod/instagram-username"
	DefaultInstagramPasswordParam = "/prompt-poster/prod/instagram-password"
)

// AWSClients holds the core AWS SDK clients used at cold start.
type AWSClients struct {
	Config aws.Config
	S3     *s3.Client
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config and returns it along with common clients.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		S3:     s3.NewFromConfig(cfg),
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// FillSecrets populates the secret fields of cfg that the environment left
// empty, fetching them from SSM Parameter Store with decryption. Fatals on
// SSM errors; a missing parameter is caught later by cfg.Validate.
func FillSecrets(ssmClient *ssm.Client, cfg *config.Config) {
	if cfg.MidjourneyAPIKey == "" {
		cfg.MidjourneyAPIKey = fetchParam(ssmClient,
			logging.EnvOrDefault("SSM_MIDJOURNEY_KEY_PARAM", DefaultMidjourneyKeyParam))
	}
	if cfg.InstagramUsername == "" {
		cfg.InstagramUsername = fetchParam(ssmClient,
			logging.EnvOrDefault("SSM_INSTAGRAM_USERNAME_PARAM", DefaultInstagramUserParam))
	}
	if cfg.InstagramPassword == "" {
		cfg.InstagramPassword = fetchParam(ssmClient,
			logging.EnvOrDefault("SSM_INSTAGRAM_PASSWORD_PARAM", DefaultInstagramPasswordParam))
	}
}

// fetchParam reads one decrypted SSM parameter value.
func fetchParam(ssmClient *ssm.Client, paramName string) string {
	ssmStart := time.Now()
	result, err := ssmClient.GetParameter(context.Background(), &ssm.GetParameterInput{
		Name:           &paramName,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		log.Fatal().Err(err).Str("param", paramName).Msg("Failed to read secret from SSM")
	}
	log.Debug().Str("param", paramName).Dur("elapsed", time.Since(ssmStart)).Msg("Secret loaded from SSM")
	return *result.Parameter.Value
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
