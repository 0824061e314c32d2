package dto

import (
	"regexp"
	"strings"
)

// HireRecord is one pending onboarding task, materialized from a single
// sheet row. The work email is the only reliable cross-system key; the
// BambooHR employee ID is unknown until the record is created or discovered
// and is carried forward to every subsequent step once known.
type HireRecord struct {
	Row              int    `json:"row"` // 1-based sheet row index
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email"`
	StartDate        string `json:"start_date"` // YYYY-MM-DD
	JobTitle         string `json:"job_title"`
	Department       string `json:"department,omitempty"`
	Division         string `json:"division,omitempty"`
	Location         string `json:"location,omitempty"`
	PayRate          string `json:"pay_rate,omitempty"`
	PayType          string `json:"pay_type,omitempty"`     // "Hourly" unless the sheet says otherwise
	PaySchedule      string `json:"pay_schedule,omitempty"` // "Biweekly" unless the sheet says otherwise
	ReportsTo        string `json:"reports_to,omitempty"`   // "Display Name (1234)"
	EmploymentStatus string `json:"employment_status,omitempty"`
	PlatformID       string `json:"platform_id,omitempty"` // BambooHR employee ID, empty until known
}

var regexSupervisorID = regexp.MustCompile(`\((\d+)\)\s*$`)

func (r HireRecord) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// SupervisorID extracts the numeric ID from the trailing parenthetical of the
// reports-to cell ("Jane Roe (601)" -> "601"). Empty when the cell is blank
// or carries no ID.
func (r HireRecord) SupervisorID() string {
	m := regexSupervisorID.FindStringSubmatch(r.ReportsTo)
	if m == nil {
		return ""
	}
	return m[1]
}
