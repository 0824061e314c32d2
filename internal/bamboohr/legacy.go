package bamboohr

import (
	"context"
	"encoding/json"
	"fmt"
	neturl "net/url"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/CCDocs-repos/Batch-Onboarding-Automation/internal/dto"
)

// RequestSignature triggers the offer-letter e-signature request through the
// legacy AJAX endpoint. The contract field values are passed as query
// parameters the way the web UI does it; there is no REST equivalent.
func (c *Client) RequestSignature(ctx context.Context, rec dto.HireRecord) error {
	if rec.PlatformID == "" {
		return &dto.ValidationError{Field: "employeeId", Value: "", Reason: "missing"}
	}

	params := neturl.Values{}
	params.Set("esignatureTemplateId", c.templateID)
	params.Set("employeeId", rec.PlatformID)
	for field, value := range c.contractFields(rec) {
		params.Set("fields["+field+"]", value)
	}

	url := c.legacyBase + "/ajax/files/send_signature_request.php?" + params.Encode()
	status, body, err := c.doLegacy(ctx, fasthttp.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("signature request %s: %w", rec.PlatformID, err)
	}
	if status/100 != 2 {
		return fmt.Errorf("signature request %s: %w", rec.PlatformID, &dto.TransientHTTPError{Status: status, Body: string(body)})
	}

	c.log.Info().Str("employee_id", rec.PlatformID).Str("email", rec.Email).Msg("signature request sent")
	return nil
}

// SendNewHirePacket queues the onboarding packet and welcome email for a
// freshly created record. Same legacy session auth as the signature call.
func (c *Client) SendNewHirePacket(ctx context.Context, employeeID string) error {
	payload := map[string]any{
		"employeeId":       employeeID,
		"sendWelcomeEmail": true,
	}

	url := c.legacyBase + "/ajax/onboarding/sendPacket"
	status, body, err := c.doLegacy(ctx, fasthttp.MethodPost, url, payload)
	if err != nil {
		return fmt.Errorf("new hire packet %s: %w", employeeID, err)
	}
	if status/100 != 2 {
		return fmt.Errorf("new hire packet %s: %w", employeeID, &dto.TransientHTTPError{Status: status, Body: string(body)})
	}

	c.log.Info().Str("employee_id", employeeID).Msg("new hire packet sent")
	return nil
}

// contractFields maps the hire record onto the e-signature template
// placeholders (contractor name on page 1, signature block on page 8).
func (c *Client) contractFields(rec dto.HireRecord) map[string]string {
	fields := map[string]string{
		"contractorName": rec.FullName(),
		"employeeName":   rec.FullName(),
		"signatureDate":  time.Now().Format("January 2, 2006"),
	}
	if rec.JobTitle != "" {
		fields["position"] = rec.JobTitle
	}
	if rec.StartDate != "" {
		fields["startDate"] = rec.StartDate
	}
	if rec.PayRate != "" {
		fields["salary"] = rec.PayRate
	}
	if rec.Email != "" {
		fields["email"] = rec.Email
	}
	return fields
}

// doLegacy issues one session-authenticated request. A 401/403 invalidates
// the cached credential, re-authenticates through the login collaborator and
// retries exactly once.
func (c *Client) doLegacy(ctx context.Context, method, url string, payload any) (int, []byte, error) {
	if c.session == nil {
		return 0, nil, fmt.Errorf("legacy endpoint: %w", dto.ErrAuthExpired)
	}

	cred, err := c.session.Credential(ctx)
	if err != nil {
		return 0, nil, err
	}

	status, body, err := c.doWithCredential(ctx, method, url, payload, cred)
	if err != nil {
		return 0, nil, err
	}
	if status != fasthttp.StatusUnauthorized && status != fasthttp.StatusForbidden {
		return status, body, nil
	}

	c.log.Warn().Int("status", status).Msg("session expired, re-authenticating")
	c.session.Invalidate()
	cred, err = c.session.Credential(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", dto.ErrAuthExpired, err)
	}
	return c.doWithCredential(ctx, method, url, payload, cred)
}

func (c *Client) doWithCredential(ctx context.Context, method, url string, payload any, cred dto.SessionCredential) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderCookie, cred.Cookie)
	if cred.UserAgent != "" {
		req.Header.Set(fasthttp.HeaderUserAgent, cred.UserAgent)
	}
	if cred.Referer != "" {
		req.Header.Set(fasthttp.HeaderReferer, cred.Referer)
	}
	if cred.Accept != "" {
		req.Header.Set(fasthttp.HeaderAccept, cred.Accept)
	}
	if cred.RequestedWith != "" {
		req.Header.Set("X-Requested-With", cred.RequestedWith)
	}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("json.Marshal: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(b)
	}

	if err := c.http.Do(req, resp); err != nil {
		return 0, nil, err
	}
	return resp.StatusCode(), append([]byte(nil), resp.Body()...), nil
}
