// internal/portal/client.go
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tamzrod/attendance-notifier/internal/attendance"
	"github.com/tamzrod/attendance-notifier/internal/session"
)

const (
	loginPath   = "/api/auth/login"
	coursesPath = "/api/student/dashboard/registered-courses"
)

// ErrUnauthorized means the portal rejected the session token.
var ErrUnauthorized = errors.New("portal: unauthorized")

// Config is the portal endpoint and the single fixed credential.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client talks to the portal JSON API. It holds no session state;
// the Authorization value is supplied per call.
type Client struct {
	cfg  Config
	http *http.Client
}

// New returns a Client. A nil httpClient gets one with cfg.Timeout.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("portal: base url required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("portal: username and password required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpClient}, nil
}

// ---- wire types ----

type loginRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

type loginResponse struct {
	Data struct {
		AuthPref string `json:"auth_pref"`
		Token    string `json:"token"`
	} `json:"data"`
}

// Course is one registered course as the portal reports it.
type Course struct {
	Code        string             `json:"courseCode"`
	Name        string             `json:"courseName"`
	Completions []CompletionDetail `json:"studentCourseCompDetails"`
}

// CompletionDetail carries the lecture counters.
type CompletionDetail struct {
	PresentLecture int `json:"presentLecture"`
	TotalLecture   int `json:"totalLecture"`
}

// Counter extracts the counters from the first completion record.
// ok is false when the course has none.
func (c Course) Counter() (attendance.CourseCounter, bool) {
	if len(c.Completions) == 0 {
		return attendance.CourseCounter{}, false
	}
	d := c.Completions[0]
	return attendance.CourseCounter{Present: d.PresentLecture, Total: d.TotalLecture}, true
}

type coursesResponse struct {
	Data []Course `json:"data"`
}

// ---- calls ----

// Login implements session.Authenticator.
func (c *Client) Login(ctx context.Context) (session.Credentials, error) {
	body, err := json.Marshal(loginRequest{UserName: c.cfg.Username, Password: c.cfg.Password})
	if err != nil {
		return session.Credentials{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return session.Credentials{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out loginResponse
	if err := c.do(req, &out); err != nil {
		return session.Credentials{}, fmt.Errorf("portal: login: %w", err)
	}
	if out.Data.Token == "" {
		return session.Credentials{}, errors.New("portal: login: response carried no token")
	}

	return session.Credentials{AuthPrefix: out.Data.AuthPref, Token: out.Data.Token}, nil
}

// FetchCourses returns the registered courses. A 401/403 yields ErrUnauthorized.
func (c *Client) FetchCourses(ctx context.Context, authorization string) ([]Course, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+coursesPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Accept", "application/json")

	var out coursesResponse
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("portal: fetch courses: %w", err)
	}
	return out.Data, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
