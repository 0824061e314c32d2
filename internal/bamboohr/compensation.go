package bamboohr

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/CCDocs-repos/Batch-Onboarding-Automation/internal/dto"
)

type compensationRow struct {
	ID            json.Number `json:"id"`
	EffectiveDate string      `json:"effectiveDate"`
}

// AddCompensation sets up pay for the record's start date. The call is
// idempotent on effective date: a row that already exists for that date is
// updated in place instead of inserted again. A blank pay rate skips the
// step; an unparseable one is a validation error and is not retried.
func (c *Client) AddCompensation(ctx context.Context, employeeID string, rec dto.HireRecord) error {
	rate, err := NormalizeMoney(rec.PayRate)
	if err != nil {
		return err
	}
	if rate == "" {
		c.log.Warn().Str("employee_id", employeeID).Msg("no pay rate on the row, skipping compensation")
		return nil
	}

	payPer := "Hour"
	if t := strings.ToLower(rec.PayType); t == "salary" || t == "salaried" {
		payPer = "Year"
	}

	payload := map[string]any{
		"payRate":  rate,
		"payPer":   payPer,
		"currency": "USD",
	}
	putNonEmpty(payload, "payType", rec.PayType)
	putNonEmpty(payload, "paySchedule", rec.PaySchedule)
	putNonEmpty(payload, "effectiveDate", rec.StartDate)

	tableURL := c.apiBase + "/employees/" + employeeID + "/tables/compensation/"

	_, body, err := c.callWithRetry(ctx, "compensation table fetch", func() (int, []byte, string, error) {
		return c.doJSON(ctx, fasthttp.MethodGet, tableURL, nil)
	})
	if err != nil {
		return fmt.Errorf("fetch compensation table %s: %w", employeeID, err)
	}

	if rowID := matchEffectiveDate(body, rec.StartDate); rowID != "" {
		c.log.Info().Str("employee_id", employeeID).Str("row_id", rowID).Msg("compensation row exists for effective date, updating")
		_, _, err := c.callWithRetry(ctx, "compensation update", func() (int, []byte, string, error) {
			return c.doJSON(ctx, fasthttp.MethodPut, tableURL+rowID, payload)
		})
		if err != nil {
			return fmt.Errorf("update compensation row %s: %w", rowID, err)
		}
		return nil
	}

	_, _, err = c.callWithRetry(ctx, "compensation insert", func() (int, []byte, string, error) {
		return c.doJSON(ctx, fasthttp.MethodPost, tableURL, payload)
	})
	if err != nil {
		return fmt.Errorf("add compensation %s: %w", employeeID, err)
	}
	return nil
}

// matchEffectiveDate returns the ID of an existing table row with the given
// effective date, or "". A body that is not the expected shape means the
// deployment returned something unusual and we fall through to an insert.
func matchEffectiveDate(body []byte, effectiveDate string) string {
	if effectiveDate == "" {
		return ""
	}

	var rows []compensationRow
	if err := json.Unmarshal(body, &rows); err != nil {
		var wrapped struct {
			Employees []compensationRow `json:"employees"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return ""
		}
		rows = wrapped.Employees
	}

	for _, row := range rows {
		if row.EffectiveDate == effectiveDate {
			return row.ID.String()
		}
	}
	return ""
}

// NormalizeMoney strips the currency symbol and thousands separators from a
// sheet money value ("$1,250.50" -> "1250.50"). Anything left that does not
// parse as a number is a hard validation error.
func NormalizeMoney(raw string) (string, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "", nil
	}
	if _, err := strconv.ParseFloat(cleaned, 64); err != nil {
		return "", &dto.ValidationError{Field: "payRate", Value: raw, Reason: "not a number"}
	}
	return cleaned, nil
}
