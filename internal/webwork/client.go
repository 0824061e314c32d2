package webwork

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/CCDocs-repos/Batch-Onboarding-Automation/internal/dto"
)

// Doer is the transport seam; *fasthttp.Client satisfies it.
type Doer interface {
	Do(req *fasthttp.Request, resp *fasthttp.Response) error
}

type Config struct {
	URL      string // users endpoint, e.g. https://www.webwork-tracker.com/rest-api/users
	Username string
	Password string
	Teams    []string // first entry is the primary team
	Role     int
	Project  string
}

type Deps struct {
	HTTP   Doer
	Config Config
	Log    zerolog.Logger
}

// Client wraps the WebWork REST API. The API answers HTTP 200 even when the
// operation failed; business success lives in the "success" field of the
// JSON body, never in the status code.
type Client struct {
	http    Doer
	url     string
	auth    string
	teams   []string
	role    int
	project string
	log     zerolog.Logger
}

func NewClient(d Deps) *Client {
	basic := base64.StdEncoding.EncodeToString([]byte(d.Config.Username + ":" + d.Config.Password))
	return &Client{
		http:    d.HTTP,
		url:     strings.TrimRight(d.Config.URL, "/"),
		auth:    "Basic " + basic,
		teams:   d.Config.Teams,
		role:    d.Config.Role,
		project: d.Config.Project,
		log:     d.Log.With().Str("component", "WebWorkClient").Logger(),
	}
}

type accountPayload struct {
	Email     string   `json:"email"`
	FirstName string   `json:"firstname"`
	LastName  string   `json:"lastname"`
	Position  string   `json:"position,omitempty"`
	Role      int      `json:"role"`
	Teams     []string `json:"teams,omitempty"`
	Team      string   `json:"team,omitempty"`
	Project   string   `json:"project,omitempty"`
}

type apiResponse struct {
	Success *bool    `json:"success"`
	Message messages `json:"message"`
}

func (r apiResponse) failed() bool {
	return r.Success != nil && !*r.Success
}

// messages tolerates both the list and plain-string shapes the API returns.
type messages []string

func (m *messages) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*m = list
		return nil
	}
	var single string
	if err := json.Unmarshal(b, &single); err != nil {
		return err
	}
	*m = messages{single}
	return nil
}

func (m messages) joined() string {
	if len(m) == 0 {
		return "unknown WebWork error"
	}
	return strings.Join(m, "; ")
}

// CreateAccount provisions the time-tracker account. The first payload shape
// assigns all configured teams at once; when the body reports failure the
// call is repeated with the single primary team, and the remaining teams are
// added one by one afterwards. A failed secondary add downgrades the result
// to a warning, not a failure.
func (c *Client) CreateAccount(ctx context.Context, rec dto.HireRecord) (string, error) {
	payload := accountPayload{
		Email:     rec.Email,
		FirstName: rec.FirstName,
		LastName:  rec.LastName,
		Position:  rec.JobTitle,
		Role:      c.role,
		Teams:     c.teams,
		Project:   c.project,
	}

	resp, err := c.post(ctx, c.url, payload)
	if err != nil {
		return "", fmt.Errorf("create account: %w", err)
	}
	if !resp.failed() {
		c.log.Info().Str("email", rec.Email).Msg("account created with all teams")
		return "", nil
	}
	if len(c.teams) == 0 {
		return "", fmt.Errorf("create account: %s", resp.Message.joined())
	}

	c.log.Warn().Str("email", rec.Email).Str("reason", resp.Message.joined()).Msg("multi-team create rejected, retrying with primary team")

	payload.Teams = nil
	payload.Team = c.teams[0]
	resp, err = c.post(ctx, c.url, payload)
	if err != nil {
		return "", fmt.Errorf("create account: %w", err)
	}
	if resp.failed() {
		return "", fmt.Errorf("create account: %s", resp.Message.joined())
	}

	var unassigned []string
	for _, team := range c.teams[1:] {
		if err := c.addToTeam(ctx, rec.Email, team); err != nil {
			c.log.Warn().Err(err).Str("email", rec.Email).Str("team", team).Msg("secondary team assignment failed")
			unassigned = append(unassigned, team)
		}
	}
	if len(unassigned) > 0 {
		return "created with partial team assignment (missing: " + strings.Join(unassigned, ", ") + ")", nil
	}

	c.log.Info().Str("email", rec.Email).Msg("account created with primary team, remaining teams added")
	return "", nil
}

// addToTeam finds the user by email in the account list, then posts the team
// membership.
func (c *Client) addToTeam(ctx context.Context, email, team string) error {
	status, body, err := c.doJSON(ctx, fasthttp.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if status/100 != 2 {
		return fmt.Errorf("list users: %w", &dto.TransientHTTPError{Status: status, Body: string(body)})
	}

	var users []struct {
		ID    json.Number `json:"id"`
		Email string      `json:"email"`
	}
	if err := json.Unmarshal(body, &users); err != nil {
		return fmt.Errorf("decode users: %w", err)
	}

	var userID string
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			userID = u.ID.String()
			break
		}
	}
	if userID == "" {
		return dto.ErrNotFound
	}

	payload := map[string]any{
		"user_id": userID,
		"team":    team,
	}
	status, body, err = c.doJSON(ctx, fasthttp.MethodPost, c.url+"/teams", payload)
	if err != nil {
		return fmt.Errorf("add to team: %w", err)
	}
	if status/100 != 2 {
		return fmt.Errorf("add to team: %w", &dto.TransientHTTPError{Status: status, Body: string(body)})
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, payload accountPayload) (apiResponse, error) {
	status, body, err := c.doJSON(ctx, fasthttp.MethodPost, url, payload)
	if err != nil {
		return apiResponse{}, err
	}
	if status/100 != 2 {
		// Not the documented behavior; the API normally hides failures
		// behind a 200. Treat a real error status as a hard failure.
		return apiResponse{}, &dto.TransientHTTPError{Status: status, Body: string(body)}
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return apiResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, url string, payload any) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAuthorization, c.auth)
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
