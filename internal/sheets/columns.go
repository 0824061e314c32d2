package sheets

import (
	"strings"
	"time"

	"github.com/CCDocs-repos/Batch-Onboarding-Automation/internal/dto"
)

// ColumnMap names the sheet headers that feed each HireRecord field. The
// layouts drifted between tabs over time, so the header names are
// configuration; all header fragility is isolated to this file.
type ColumnMap struct {
	FirstName        string `yaml:"first_name"`
	LastName         string `yaml:"last_name"`
	Email            string `yaml:"email"`
	StartDate        string `yaml:"start_date"`
	JobTitle         string `yaml:"job_title"`
	Position         string `yaml:"position"` // fallback when the job title cell is blank
	Department       string `yaml:"department"`
	Division         string `yaml:"division"`
	Location         string `yaml:"location"`
	PayRate          string `yaml:"pay_rate"`
	PayType          string `yaml:"pay_type"`
	PaySchedule      string `yaml:"pay_schedule"`
	ReportsTo        string `yaml:"reports_to"`
	EmploymentStatus string `yaml:"employment_status"`
	Status           string `yaml:"status"` // blank status cell == pending row
	Notes            string `yaml:"notes"`
}

func DefaultColumnMap() ColumnMap {
	return ColumnMap{
		FirstName:        "First Name",
		LastName:         "Last Name",
		Email:            "Email",
		StartDate:        "Start Date",
		JobTitle:         "Job Title",
		Position:         "Position",
		Department:       "Department",
		Division:         "Division",
		Location:         "Location",
		PayRate:          "Pay Rate",
		PayType:          "Pay Type",
		PaySchedule:      "Pay Schedule",
		ReportsTo:        "Reports To",
		EmploymentStatus: "Employment Status",
		Status:           "Overall status",
		Notes:            "Notes",
	}
}

// rowReader resolves header names (trimmed of the stray whitespace the sheet
// accumulates) to cell values of one data row.
type rowReader struct {
	index map[string]int
	row   []string
}

func newRowReader(header, row []string) rowReader {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	return rowReader{index: index, row: row}
}

func (r rowReader) value(name string) string {
	i, ok := r.index[strings.TrimSpace(name)]
	if !ok || i >= len(r.row) {
		return ""
	}
	return strings.TrimSpace(r.row[i])
}

// Record materializes one sheet row. Start dates entered as MM/DD/YY or
// MM/DD/YYYY are normalized to YYYY-MM-DD; pay type and schedule fall back
// to the company defaults when the cells are blank.
func (m ColumnMap) Record(rowIndex int, header, row []string) dto.HireRecord {
	r := newRowReader(header, row)

	title := r.value(m.JobTitle)
	if title == "" {
		title = r.value(m.Position)
	}

	rec := dto.HireRecord{
		Row:              rowIndex,
		FirstName:        r.value(m.FirstName),
		LastName:         r.value(m.LastName),
		Email:            r.value(m.Email),
		StartDate:        normalizeDate(r.value(m.StartDate)),
		JobTitle:         title,
		Department:       r.value(m.Department),
		Division:         r.value(m.Division),
		Location:         r.value(m.Location),
		PayRate:          r.value(m.PayRate),
		PayType:          r.value(m.PayType),
		PaySchedule:      r.value(m.PaySchedule),
		ReportsTo:        r.value(m.ReportsTo),
		EmploymentStatus: r.value(m.EmploymentStatus),
	}
	if rec.PayType == "" {
		rec.PayType = "Hourly"
	}
	if rec.PaySchedule == "" {
		rec.PaySchedule = "Biweekly"
	}
	return rec
}

var sheetDateLayouts = []string{"1/2/06", "1/2/2006", "2006-01-02"}

func normalizeDate(raw string) string {
	for _, layout := range sheetDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	// Unrecognized format: pass through, the API will reject it if it cares.
	return raw
}
