package bamboohr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/CCDocs-repos/Batch-Onboarding-Automation/internal/dto"
)

const retryAttempts = 3

// Doer is the transport seam; *fasthttp.Client satisfies it.
type Doer interface {
	Do(req *fasthttp.Request, resp *fasthttp.Response) error
}

type Config struct {
	Subdomain  string
	APIKey     string
	TemplateID string
	Fields     FieldMap
}

type Deps struct {
	HTTP    Doer
	Session *SessionManager
	Config  Config
	Log     zerolog.Logger
}

// Client wraps the BambooHR REST API plus the two legacy session-based AJAX
// endpoints (signature request, new hire packet).
type Client struct {
	http       Doer
	session    *SessionManager
	apiBase    string // https://api.bamboohr.com/api/gateway.php/{sub}/v1
	legacyBase string // https://{sub}.bamboohr.com
	auth       string
	templateID string
	fields     FieldMap
	sleep      func(time.Duration)
	log        zerolog.Logger

	// Full-directory cache for email lookups, held for the duration of one
	// batch run. Writes issued through this same client are NOT reflected
	// here; that staleness is acceptable because the workflow never looks
	// up an email it has itself just created.
	directory []directoryEntry
	dirLoaded bool
}

func NewClient(d Deps) *Client {
	basic := base64.StdEncoding.EncodeToString([]byte(d.Config.APIKey + ":x"))
	return &Client{
		http:       d.HTTP,
		session:    d.Session,
		apiBase:    fmt.Sprintf("https://api.bamboohr.com/api/gateway.php/%s/v1", d.Config.Subdomain),
		legacyBase: fmt.Sprintf("https://%s.bamboohr.com", d.Config.Subdomain),
		auth:       "Basic " + basic,
		templateID: d.Config.TemplateID,
		fields:     d.Config.Fields,
		sleep:      time.Sleep,
		log:        d.Log.With().Str("component", "BambooHRClient").Logger(),
	}
}

type directoryEntry struct {
	ID        string `json:"id"`
	WorkEmail string `json:"workEmail"`
}

// FindEmployeeByEmail scans the employee directory for a case-insensitive
// exact match on work email. A miss returns dto.ErrNotFound, not a failure.
func (c *Client) FindEmployeeByEmail(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", &dto.ValidationError{Field: "email", Value: email, Reason: "empty"}
	}

	if err := c.loadDirectory(ctx); err != nil {
		return "", err
	}

	for _, emp := range c.directory {
		if emp.WorkEmail != "" && strings.EqualFold(emp.WorkEmail, email) {
			c.log.Info().Str("email", email).Str("employee_id", emp.ID).Msg("found existing employee")
			return emp.ID, nil
		}
	}

	return "", dto.ErrNotFound
}

func (c *Client) loadDirectory(ctx context.Context) error {
	if c.dirLoaded {
		return nil
	}

	var payload struct {
		Employees []struct {
			ID        json.Number `json:"id"`
			WorkEmail string      `json:"workEmail"`
		} `json:"employees"`
	}

	_, body, err := c.callWithRetry(ctx, "employee directory", func() (int, []byte, string, error) {
		return c.doJSON(ctx, fasthttp.MethodGet, c.apiBase+"/employees/directory", nil)
	})
	if err != nil {
		return fmt.Errorf("fetch directory: %w", err)
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decode directory: %w", err)
	}

	c.directory = c.directory[:0]
	for _, emp := range payload.Employees {
		c.directory = append(c.directory, directoryEntry{ID: emp.ID.String(), WorkEmail: emp.WorkEmail})
	}
	c.dirLoaded = true

	c.log.Info().Int("employees", len(c.directory)).Msg("employee directory cached for this run")
	return nil
}

// FindCandidateByEmail queries the applicant tracking subsystem. When several
// applications share the email the first one in upstream list order wins; the
// API does not document that order.
func (c *Client) FindCandidateByEmail(ctx context.Context, email string) (string, error) {
	url := c.apiBase + "/applicant_tracking/applications?email=" + neturl.QueryEscape(email)

	_, body, err := c.callWithRetry(ctx, "candidate search", func() (int, []byte, string, error) {
		return c.doJSON(ctx, fasthttp.MethodGet, url, nil)
	})
	if err != nil {
		return "", fmt.Errorf("search candidate: %w", err)
	}

	var applications []struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(body, &applications); err != nil {
		return "", fmt.Errorf("decode applications: %w", err)
	}
	if len(applications) == 0 {
		return "", dto.ErrNotFound
	}

	id := applications[0].ID.String()
	c.log.Info().Str("email", email).Str("candidate_id", id).Msg("found tracked candidate")
	return id, nil
}

// CreateEmployee creates the record with the minimal field set, then attaches
// job fields in a second call once the ID is known; the creation endpoint
// rejects some field combinations atomically. An enrichment failure leaves
// the record partially populated and is logged, not rolled back.
func (c *Client) CreateEmployee(ctx context.Context, rec dto.HireRecord) (string, error) {
	payload := map[string]any{
		c.fields.FirstName: rec.FirstName,
		c.fields.LastName:  rec.LastName,
		c.fields.Status:    "Active",
	}
	putNonEmpty(payload, c.fields.WorkEmail, rec.Email)
	putNonEmpty(payload, c.fields.HireDate, rec.StartDate)

	_, _, location, err := c.createWithRetry(ctx, c.apiBase+"/employees/", payload)
	if err != nil {
		return "", fmt.Errorf("create employee: %w", err)
	}

	id := lastPathSegment(location)
	if id == "" {
		return "", fmt.Errorf("create employee: no record ID in Location header %q", location)
	}
	c.log.Info().Str("employee_id", id).Str("email", rec.Email).Msg("created employee")

	if err := c.UpdateEmployee(ctx, id, rec); err != nil {
		c.log.Warn().Err(err).Str("employee_id", id).Msg("job field enrichment failed, record left partially populated")
	}

	return id, nil
}

// HireCandidate converts a tracked applicant into an employee in one call.
func (c *Client) HireCandidate(ctx context.Context, candidateID string, rec dto.HireRecord) (string, error) {
	payload := c.jobFields(rec)
	putNonEmpty(payload, c.fields.FirstName, rec.FirstName)
	putNonEmpty(payload, c.fields.LastName, rec.LastName)
	putNonEmpty(payload, c.fields.HireDate, rec.StartDate)
	payload["status"] = "active"

	url := c.apiBase + "/applicant_tracking/applications/" + candidateID + "/hire"
	_, body, err := c.callWithRetry(ctx, "hire candidate", func() (int, []byte, string, error) {
		return c.doJSON(ctx, fasthttp.MethodPost, url, payload)
	})
	if err != nil {
		return "", fmt.Errorf("hire candidate %s: %w", candidateID, err)
	}

	var result struct {
		EmployeeID json.Number `json:"employeeId"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode hire response: %w", err)
	}
	id := result.EmployeeID.String()
	if id == "" {
		return "", fmt.Errorf("hire candidate %s: no employeeId in response", candidateID)
	}

	c.log.Info().Str("candidate_id", candidateID).Str("employee_id", id).Msg("hired tracked candidate")
	return id, nil
}

// UpdateEmployee populates the job fields on an existing record.
func (c *Client) UpdateEmployee(ctx context.Context, employeeID string, rec dto.HireRecord) error {
	payload := c.jobFields(rec)
	if len(payload) == 0 {
		return nil
	}

	url := c.apiBase + "/employees/" + employeeID
	_, _, err := c.callWithRetry(ctx, "update employee", func() (int, []byte, string, error) {
		return c.doJSON(ctx, fasthttp.MethodPost, url, payload)
	})
	if err != nil {
		return fmt.Errorf("update employee %s: %w", employeeID, err)
	}
	return nil
}

// GrantPortalAccess provisions an Employee Self-Service login. Not every
// deployment exposes the endpoint: a 404 is a skip, not a failure.
func (c *Client) GrantPortalAccess(ctx context.Context, employeeID, email string) error {
	eid, err := strconv.Atoi(employeeID)
	if err != nil {
		return &dto.ValidationError{Field: "employeeId", Value: employeeID, Reason: "not numeric"}
	}
	payload := map[string]any{
		"employeeId":  eid,
		"accessLevel": "Employee Self-Service",
		"email":       email,
	}

	var status int
	var body []byte
	for attempt := 0; attempt < retryAttempts; attempt++ {
		status, body, _, err = c.doJSON(ctx, fasthttp.MethodPost, c.apiBase+"/meta/users", payload)
		if err == nil {
			if status/100 == 2 {
				return nil
			}
			if status == fasthttp.StatusNotFound {
				c.log.Warn().Str("employee_id", employeeID).Msg("self-service endpoint not available, skipping")
				return dto.ErrEndpointUnavailable
			}
		}
		if attempt < retryAttempts-1 {
			c.sleep(backoff(attempt))
		}
	}
	if err != nil {
		return fmt.Errorf("grant portal access %s: %w", employeeID, err)
	}
	return fmt.Errorf("grant portal access %s: %w", employeeID, &dto.TransientHTTPError{Status: status, Body: string(body)})
}

// jobFields builds the deployment-specific enrichment payload, dropping
// blanks so custom fields keep their defaults.
func (c *Client) jobFields(rec dto.HireRecord) map[string]any {
	payload := map[string]any{}
	putNonEmpty(payload, c.fields.JobTitle, rec.JobTitle)
	putNonEmpty(payload, c.fields.Department, rec.Department)
	putNonEmpty(payload, c.fields.Division, rec.Division)
	putNonEmpty(payload, c.fields.Location, rec.Location)
	putNonEmpty(payload, c.fields.EmploymentStatus, rec.EmploymentStatus)
	putNonEmpty(payload, c.fields.Supervisor, rec.SupervisorID())
	return payload
}

// callWithRetry runs one REST call with bounded exponential backoff on any
// non-2xx response: 3 attempts, 1s then 2s between them.
func (c *Client) callWithRetry(ctx context.Context, op string, do func() (int, []byte, string, error)) (int, []byte, error) {
	var (
		status int
		body   []byte
		err    error
	)
	for attempt := 0; attempt < retryAttempts; attempt++ {
		status, body, _, err = do()
		if err == nil && status/100 == 2 {
			return status, body, nil
		}
		if err != nil {
			c.log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("request failed")
		} else {
			c.log.Warn().Str("op", op).Int("attempt", attempt).Int("status", status).Msg("unexpected status")
		}
		if attempt < retryAttempts-1 {
			c.sleep(backoff(attempt))
		}
	}
	if err != nil {
		return 0, nil, err
	}
	return status, body, &dto.TransientHTTPError{Status: status, Body: string(body)}
}

// createWithRetry is callWithRetry preserving the Location header.
func (c *Client) createWithRetry(ctx context.Context, url string, payload any) (int, []byte, string, error) {
	var (
		status   int
		body     []byte
		location string
		err      error
	)
	for attempt := 0; attempt < retryAttempts; attempt++ {
		status, body, location, err = c.doJSON(ctx, fasthttp.MethodPost, url, payload)
		if err == nil && status/100 == 2 {
			return status, body, location, nil
		}
		if attempt < retryAttempts-1 {
			c.sleep(backoff(attempt))
		}
	}
	if err != nil {
		return 0, nil, "", err
	}
	return status, body, "", &dto.TransientHTTPError{Status: status, Body: string(body)}
}

func (c *Client) doJSON(ctx context.Context, method, url string, payload any) (int, []byte, string, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, "", err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAuthorization, c.auth)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, "", fmt.Errorf("json.Marshal: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(b)
	}

	if err := c.http.Do(req, resp); err != nil {
		return 0, nil, "", err
	}

	body := append([]byte(nil), resp.Body()...)
	location := string(resp.Header.Peek(fasthttp.HeaderLocation))
	return resp.StatusCode(), body, location, nil
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

func putNonEmpty(payload map[string]any, key, value string) {
	if key != "" && value != "" {
		payload[key] = value
	}
}

func lastPathSegment(location string) string {
	location = strings.TrimRight(location, "/")
	if i := strings.LastIndexByte(location, '/'); i >= 0 {
		return location[i+1:]
	}
	return location
}
