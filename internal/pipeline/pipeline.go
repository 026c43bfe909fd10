// Package pipeline orchestrates one invocation of the prompt-to-post flow:
// select the first unprocessed spreadsheet row, generate and upscale images
// for its prompt, download them, post them to Instagram as one album,
// archive them to S3, and write the row's run timestamp back to the sheet.
//
// The flow is strictly sequential and processes at most one row per
// invocation. Any collaborator error aborts the run before the sheet write,
// leaving the row eligible for the next invocation; there is no retry and no
// cleanup of already-downloaded files.
package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/prompt-poster/internal/archive"
	"github.com/fpang/prompt-poster/internal/caption"
	"github.com/fpang/prompt-poster/internal/config"
	"github.com/fpang/prompt-poster/internal/metrics"
)

// timestampLayout is the run-timestamp format appended to processed rows and
// used as the local image filename prefix.
const timestampLayout = "2006_01_02_15_04"

// Generator runs the full generation+upscale workflow for one prompt.
type Generator interface {
	GenerateAlbum(ctx context.Context, prompt string) ([]string, error)
}

// Fetcher downloads image URLs to local files.
type Fetcher interface {
	FetchAll(ctx context.Context, urls []string, prefix, dir string) ([]string, error)
}

// Sheet reads and writes the prompt grid.
type Sheet interface {
	Read(ctx context.Context, sheetName string) ([][]string, error)
	Write(ctx context.Context, sheetName string, grid [][]string) (int64, error)
}

// Poster publishes a multi-image album to the social account.
type Poster interface {
	Login(ctx context.Context) error
	AlbumUpload(ctx context.Context, paths []string, caption string) (string, error)
	Logout(ctx context.Context) error
}

// Archiver uploads one local file to object storage.
type Archiver interface {
	Archive(ctx context.Context, localPath, key string) error
}

// Pipeline wires the collaborators for one invocation.
type Pipeline struct {
	cfg      config.Config
	gen      Generator
	fetcher  Fetcher
	sheet    Sheet
	poster   Poster
	archiver Archiver

	// now is injectable for tests.
	now func() time.Time
	// workDir receives the per-run image directory; empty means the
	// system temp dir.
	workDir string
}

// New creates a Pipeline from its collaborators and configuration.
func New(cfg config.Config, gen Generator, fetcher Fetcher, sheet Sheet, poster Poster, archiver Archiver) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		gen:      gen,
		fetcher:  fetcher,
		sheet:    sheet,
		poster:   poster,
		archiver: archiver,
		now:      time.Now,
	}
}

// Run executes one invocation end to end. It returns nil both when a row was
// processed and when no row was eligible.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()
	runID := newRunID()
	logger := log.With().Str("runId", runID).Logger()

	rec := metrics.New("PromptPoster")
	rec.Property("runId", runID)
	defer func() {
		duration := time.Since(start)
		logger.Info().Dur("duration", duration).Msg("Invocation finished")
		rec.Duration("InvocationDuration", duration)
		rec.Flush()
	}()

	grid, err := p.sheet.Read(ctx, p.cfg.ReadSheetName)
	if err != nil {
		return fmt.Errorf("read sheet: %w", err)
	}

	row, ok := SelectRow(grid)
	if !ok {
		logger.Info().Int("rows", len(grid)).Msg("No unprocessed rows, nothing to do")
		rec.Count("RowsProcessed", 0)
		return nil
	}
	logger.Info().
		Str("rowId", row.ID).
		Int("rowIndex", row.Index).
		Str("prompt", row.Prompt).
		Msg("Row selected")

	runTime := p.now()
	timestamp := runTime.Format(timestampLayout)

	urls, err := p.gen.GenerateAlbum(ctx, row.Prompt)
	if err != nil {
		return fmt.Errorf("generate images for row %s: %w", row.ID, err)
	}

	dir, err := os.MkdirTemp(p.workDir, "prompt-images-*")
	if err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}
	paths, err := p.fetcher.FetchAll(ctx, urls, "image_"+timestamp, dir)
	if err != nil {
		return fmt.Errorf("download images for row %s: %w", row.ID, err)
	}

	postCaption := caption.Build(row.Description, row.Tags, p.cfg.DefaultTags)
	if err := p.poster.Login(ctx); err != nil {
		return fmt.Errorf("login for row %s: %w", row.ID, err)
	}
	mediaID, err := p.poster.AlbumUpload(ctx, paths, postCaption)
	if err != nil {
		return fmt.Errorf("post album for row %s: %w", row.ID, err)
	}
	if err := p.poster.Logout(ctx); err != nil {
		return fmt.Errorf("logout for row %s: %w", row.ID, err)
	}
	logger.Info().Str("rowId", row.ID).Str("mediaId", mediaID).Msg("Album posted")

	for _, path := range paths {
		if err := p.archiver.Archive(ctx, path, archive.Key(runTime, path)); err != nil {
			return fmt.Errorf("archive %s for row %s: %w", path, row.ID, err)
		}
	}

	grid[row.Index] = append(grid[row.Index], timestamp)
	updated, err := p.sheet.Write(ctx, p.cfg.WriteSheetName, grid)
	if err != nil {
		return fmt.Errorf("write sheet for row %s: %w", row.ID, err)
	}
	logger.Info().
		Str("rowId", row.ID).
		Int64("updatedCells", updated).
		Str("timestamp", timestamp).
		Msg("Row marked processed")

	rec.Count("RowsProcessed", 1)
	rec.Count("ImagesPosted", len(paths))
	rec.Property("rowId", row.ID)
	return nil
}

// newRunID returns a random identifier correlating all log events of one run.
func newRunID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "run-unknown"
	}
	return "run-" + hex.EncodeToString(b)
}
