package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/CCDocs-repos/Batch-Onboarding-Automation/internal/dto"
)

type Config struct {
	SpreadsheetID   string
	Tab             string
	CredentialsFile string
}

// Adapter is the spreadsheet-backed task source: rows whose status cell is
// blank are pending; processing writes exactly two cells back per row.
type Adapter struct {
	values        *sheetsapi.SpreadsheetsValuesService
	spreadsheetID string
	tab           string
	columns       ColumnMap
	log           zerolog.Logger

	header    []string
	statusCol int
	notesCol  int
}

func NewAdapter(ctx context.Context, cfg Config, columns ColumnMap, log zerolog.Logger) (*Adapter, error) {
	svc, err := sheetsapi.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets.NewService: %w", err)
	}

	return &Adapter{
		values:        svc.Spreadsheets.Values,
		spreadsheetID: cfg.SpreadsheetID,
		tab:           cfg.Tab,
		columns:       columns,
		log:           log.With().Str("component", "SheetAdapter").Logger(),
		statusCol:     -1,
		notesCol:      -1,
	}, nil
}

// Pending reads the tab and returns the rows whose status cell is blank, and
// only those. Row indices are 1-based sheet positions (data starts at 2).
func (a *Adapter) Pending(ctx context.Context) ([]dto.HireRecord, error) {
	// The bare tab name reads every populated cell, so the status and notes
	// columns are found no matter how wide the sheet grows.
	resp, err := a.values.Get(a.spreadsheetID, a.tab).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("values.Get: %w", err)
	}
	if len(resp.Values) == 0 {
		a.log.Warn().Msg("sheet is empty")
		return nil, nil
	}

	a.header = stringRow(resp.Values[0])
	if err := a.locateWriteColumns(); err != nil {
		return nil, err
	}

	var pending []dto.HireRecord
	for i, raw := range resp.Values[1:] {
		rowIndex := i + 2
		row := stringRow(raw)
		if cellAt(row, a.statusCol) != "" {
			continue
		}
		pending = append(pending, a.columns.Record(rowIndex, a.header, row))
	}

	a.log.Info().Int("total", len(resp.Values)-1).Int("pending", len(pending)).Msg("sheet read")
	return pending, nil
}

// WriteBack records the row outcome: one status cell, one notes cell.
func (a *Adapter) WriteBack(ctx context.Context, rowIndex int, status, notes string) error {
	if a.statusCol < 0 || a.notesCol < 0 {
		return fmt.Errorf("write back row %d: status/notes columns not located, read the sheet first", rowIndex)
	}

	for _, cell := range []struct {
		col   int
		value string
	}{
		{a.statusCol, status},
		{a.notesCol, notes},
	} {
		target := fmt.Sprintf("%s!%s%d", a.tab, columnLetter(cell.col), rowIndex)
		_, err := a.values.
			Update(a.spreadsheetID, target, &sheetsapi.ValueRange{Values: [][]any{{cell.value}}}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("values.Update %s: %w", target, err)
		}
	}

	a.log.Info().Int("row", rowIndex).Str("status", status).Msg("row updated")
	return nil
}

func (a *Adapter) locateWriteColumns() error {
	a.statusCol, a.notesCol = -1, -1
	for i, h := range a.header {
		switch strings.TrimSpace(h) {
		case strings.TrimSpace(a.columns.Status):
			a.statusCol = i
		case strings.TrimSpace(a.columns.Notes):
			a.notesCol = i
		}
	}
	if a.statusCol < 0 || a.notesCol < 0 {
		return fmt.Errorf("sheet is missing the %q or %q column", a.columns.Status, a.columns.Notes)
	}
	return nil
}

func stringRow(raw []any) []string {
	out := make([]string, len(raw))
	for i, v := range raw {
		if s, ok := v.(string); ok {
			out[i] = s
			continue
		}
		out[i] = fmt.Sprint(v)
	}
	return out
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// columnLetter converts a zero-based column index to A1 notation.
func columnLetter(i int) string {
	letters := ""
	for i >= 0 {
		letters = string(rune('A'+i%26)) + letters
		i = i/26 - 1
	}
	return letters
}
