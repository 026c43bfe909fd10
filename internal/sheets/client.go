// Package sheets wraps the Google Sheets v4 API for reading and writing the
// prompt grid. The grid is a rectangular window of cells (A1:Z) on a named
// sheet; reads return every non-empty row in sheet order, header included,
// and writes overwrite the same window wholesale. Last writer wins; there
// is no diffing and no conflict detection.
package sheets

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// columnWindow is the fixed column range the prompt grid lives in.
const columnWindow = "A1:Z"

// Error reports a failed spreadsheet operation.
type Error struct {
	Op    string // "read" or "write"
	Sheet string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("sheets: %s %q: %v", e.Op, e.Sheet, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Client reads and writes one spreadsheet identified at construction.
type Client struct {
	service *sheetsapi.Service
	sheetID string
}

// NewClient creates a Sheets client authenticated with a service-account
// credentials file.
func NewClient(ctx context.Context, sheetID, credentialsFile string) (*Client, error) {
	return NewClientWithOptions(ctx, sheetID,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
}

// NewClientWithOptions creates a Sheets client with explicit client options.
// Tests use this to point the service at a local HTTP server.
func NewClientWithOptions(ctx context.Context, sheetID string, opts ...option.ClientOption) (*Client, error) {
	service, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{service: service, sheetID: sheetID}, nil
}

// Read returns all non-empty rows of the grid on the named sheet, in sheet
// row order, with every cell rendered as a string.
func (c *Client) Read(ctx context.Context, sheetName string) ([][]string, error) {
	rangeRef := fmt.Sprintf("%s!%s", sheetName, columnWindow)
	resp, err := c.service.Spreadsheets.Values.Get(c.sheetID, rangeRef).Context(ctx).Do()
	if err != nil {
		return nil, &Error{Op: "read", Sheet: sheetName, Err: err}
	}

	grid := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, fmt.Sprint(cell))
		}
		grid = append(grid, cells)
	}
	log.Debug().Str("sheet", sheetName).Int("rows", len(grid)).Msg("Sheet read")
	return grid, nil
}

// Write overwrites the grid window on the named sheet with the given rows
// and returns the number of updated cells. Values are interpreted as typed
// user input on the vendor side (USER_ENTERED).
func (c *Client) Write(ctx context.Context, sheetName string, grid [][]string) (int64, error) {
	values := make([][]interface{}, 0, len(grid))
	for _, row := range grid {
		cells := make([]interface{}, 0, len(row))
		for _, cell := range row {
			cells = append(cells, cell)
		}
		values = append(values, cells)
	}

	rangeRef := fmt.Sprintf("%s!%s", sheetName, columnWindow)
	resp, err := c.service.Spreadsheets.Values.
		Update(c.sheetID, rangeRef, &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return 0, &Error{Op: "write", Sheet: sheetName, Err: err}
	}
	log.Info().Str("sheet", sheetName).Int64("updatedCells", resp.UpdatedCells).Msg("Sheet written")
	return resp.UpdatedCells, nil
}
