package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// ReportWriter writes a ledger report to an external destination.
type ReportWriter interface {
	Write(ctx context.Context, report Report) error
}

// amountColumns is the zero-based index range holding amounts on each tab.
var amountColumns = map[string][2]int64{
	TabLedger:  {5, 6},
	TabMonths:  {1, 4},
	TabBudgets: {4, 7},
}

// Writer implements ReportWriter for Google Sheets.
type Writer struct {
	service  *sheets.Service
	logger   *slog.Logger
	location *time.Location
	config   Config
}

// NewWriter creates a new Google Sheets report writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	loc, err := time.LoadLocation(config.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone: %w", err)
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:   config,
		service:  service,
		logger:   logger,
		location: loc,
	}, nil
}

// Write replaces the contents of every managed tab with report.
func (w *Writer) Write(ctx context.Context, report Report) error {
	w.logger.Info("starting sheets export",
		"transactions", len(report.Transactions),
		"budgets", len(report.Budgets))

	spreadsheetID, sheetIDs, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	values := BuildValues(report, w.location)

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	rows := 0
	for _, tab := range Tabs {
		tabValues := values[tab]
		if err := w.clearSheet(ctx, spreadsheetID, tab); err != nil {
			return fmt.Errorf("failed to clear %s: %w", tab, err)
		}
		err := common.WithRetry(ctx, func() error {
			return w.writeData(ctx, spreadsheetID, tab, tabValues)
		}, retryOpts)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", tab, err)
		}
		rows += len(tabValues)
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, sheetIDs, values)
		}, retryOpts)
		if err != nil {
			// Data is written; formatting is cosmetic.
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("sheets export completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", rows)

	return nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := oauthConfig(config.ClientID, config.ClientSecret, "")
		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		tokenSource = client.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet returns the spreadsheet id and the sheet id of each
// managed tab, adding any tab that is missing.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, map[string]int64, error) {
	if w.config.SpreadsheetID == "" {
		spreadsheet := &sheets.Spreadsheet{
			Properties: &sheets.SpreadsheetProperties{
				Title:    w.config.SpreadsheetName,
				TimeZone: w.config.TimeZone,
			},
		}
		for _, tab := range Tabs {
			spreadsheet.Sheets = append(spreadsheet.Sheets, &sheets.Sheet{
				Properties: &sheets.SheetProperties{Title: tab},
			})
		}

		created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
		if err != nil {
			return "", nil, fmt.Errorf("unable to create spreadsheet: %w", err)
		}

		w.logger.Info("created new spreadsheet",
			"id", created.SpreadsheetId,
			"url", created.SpreadsheetUrl)

		return created.SpreadsheetId, sheetIDs(created), nil
	}

	existing, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
	}

	ids := sheetIDs(existing)
	var requests []*sheets.Request
	for _, tab := range Tabs {
		if _, ok := ids[tab]; !ok {
			requests = append(requests, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: tab},
				},
			})
		}
	}
	if len(requests) == 0 {
		return existing.SpreadsheetId, ids, nil
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(existing.SpreadsheetId, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("unable to add tabs: %w", err)
	}
	for _, reply := range resp.Replies {
		if reply.AddSheet != nil && reply.AddSheet.Properties != nil {
			ids[reply.AddSheet.Properties.Title] = reply.AddSheet.Properties.SheetId
		}
	}
	return existing.SpreadsheetId, ids, nil
}

func sheetIDs(s *sheets.Spreadsheet) map[string]int64 {
	ids := make(map[string]int64, len(s.Sheets))
	for _, sh := range s.Sheets {
		if sh.Properties != nil {
			ids[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	return ids
}

// clearSheet clears all data from one tab.
func (w *Writer) clearSheet(ctx context.Context, spreadsheetID, tab string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, tab+"!A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// writeData writes values to one tab in batches to stay under API limits.
func (w *Writer) writeData(ctx context.Context, spreadsheetID, tab string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))

		batch := values[i:end]
		valueRange := &sheets.ValueRange{
			Values: batch,
		}

		rangeStr := fmt.Sprintf("%s!A%d", tab, i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()

		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "tab", tab, "start_row", i+1, "rows", len(batch))
	}

	return nil
}

// applyFormatting bolds and freezes header rows and applies the currency
// pattern to amount columns.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, ids map[string]int64, values Values) error {
	return w.batchUpdate(ctx, spreadsheetID, formattingRequests(ids, values, w.config.CurrencyPattern))
}

func (w *Writer) batchUpdate(ctx context.Context, spreadsheetID string, requests []*sheets.Request) error {
	if len(requests) == 0 {
		return nil
	}
	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}

func formattingRequests(ids map[string]int64, values Values, currencyPattern string) []*sheets.Request {
	var requests []*sheets.Request
	for _, tab := range Tabs {
		sheetID, ok := ids[tab]
		if !ok {
			continue
		}
		totalRows := int64(len(values[tab]))
		cols := amountColumns[tab]

		requests = append(requests,
			&sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId:       sheetID,
						StartRowIndex: 0,
						EndRowIndex:   1,
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							TextFormat: &sheets.TextFormat{Bold: true},
						},
					},
					Fields: "userEnteredFormat.textFormat",
				},
			},
			&sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId:          sheetID,
						StartRowIndex:    1,
						EndRowIndex:      totalRows,
						StartColumnIndex: cols[0],
						EndColumnIndex:   cols[1],
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							NumberFormat: &sheets.NumberFormat{
								Type:    "CURRENCY",
								Pattern: currencyPattern,
							},
						},
					},
					Fields: "userEnteredFormat.numberFormat",
				},
			},
			&sheets.Request{
				AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
					Dimensions: &sheets.DimensionRange{
						SheetId:    sheetID,
						Dimension:  "COLUMNS",
						StartIndex: 0,
						EndIndex:   int64(len(values[tab][0])),
					},
				},
			},
			&sheets.Request{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId: sheetID,
						GridProperties: &sheets.GridProperties{
							FrozenRowCount: 1,
						},
					},
					Fields: "gridProperties.frozenRowCount",
				},
			},
		)
	}
	return requests
}
