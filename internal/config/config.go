// Package config defines the explicit runtime configuration for the prompt
// pipeline. The configuration is built once at process start and passed into
// each component constructor; nothing reads ambient environment state after
// startup.
package config

import (
	"fmt"
	"os"
)

// Config holds everything a single invocation needs. Secret fields may be
// populated from SSM Parameter Store after FromEnv when running in Lambda.
type Config struct {
	// SheetID is the Google spreadsheet identifier.
	SheetID string
	// ReadSheetName is the sheet (tab) the prompt grid is read from.
	ReadSheetName string
	// WriteSheetName is the sheet the updated grid is written back to.
	// Defaults to "Prompts", matching the sheet the pipeline was built around.
	WriteSheetName string
	// CredentialsFile is the Google service-account JSON used for the
	// Sheets API.
	CredentialsFile string

	// ArchiveBucket is the S3 bucket archived images are uploaded to.
	ArchiveBucket string

	// DefaultTags is a verbatim hashtag suffix appended to every caption.
	DefaultTags string

	// MidjourneyAPIKey authenticates against the image-generation vendor.
	MidjourneyAPIKey string

	// Instagram credentials for the posting session.
	InstagramUsername string
	InstagramPassword string
}

// FromEnv builds a Config from environment variables. Secret fields are
// taken from the environment when present but not required here; Lambda
// cold start fills missing ones from SSM before Validate is called.
func FromEnv() Config {
	cfg := Config{
		SheetID:           os.Getenv("SHEET_ID"),
		ReadSheetName:     os.Getenv("SHEET_NAME"),
		WriteSheetName:    os.Getenv("WRITE_SHEET_NAME"),
		CredentialsFile:   os.Getenv("GOOGLE_CREDENTIALS_FILE"),
		ArchiveBucket:     os.Getenv("ARCHIVE_BUCKET"),
		DefaultTags:       os.Getenv("DEFAULT_TAGS"),
		MidjourneyAPIKey:  os.Getenv("MIDJOURNEY_API_KEY"),
		InstagramUsername: os.Getenv("INSTAGRAM_USERNAME"),
		InstagramPassword: os.Getenv("INSTAGRAM_PASSWORD"),
	}
	if cfg.WriteSheetName == "" {
		cfg.WriteSheetName = "Prompts"
	}
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = "credentials.json"
	}
	return cfg
}

// Validate checks that every required field is populated.
func (c Config) Validate() error {
	required := map[string]string{
		"SHEET_ID":           c.SheetID,
		"SHEET_NAME":         c.ReadSheetName,
		"ARCHIVE_BUCKET":     c.ArchiveBucket,
		"MIDJOURNEY_API_KEY": c.MidjourneyAPIKey,
		"INSTAGRAM_USERNAME": c.InstagramUsername,
		"INSTAGRAM_PASSWORD": c.InstagramPassword,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("config: %s is required", name)
		}
	}
	return nil
}
