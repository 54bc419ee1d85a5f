// Package github publishes activity records as pull requests against
// the dataset repository. The REST client is deliberately small: six
// operations, Bearer auth, and status-code classification so callers
// can tell "check your token" apart from "check the repository name".
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.github.com"

// clientTimeout bounds every GitHub call.
const clientTimeout = 60 * time.Second

// Kind classifies a publish failure for caller-visible messaging.
type Kind int

const (
	KindGeneric Kind = iota
	KindAuth
	KindForbidden
	KindNotFound
	KindNetwork
)

// Error is a classified failure from the GitHub API or its transport.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// IsNetwork reports whether err is a transport-level failure, the
// class where "check proxy/token connectivity" is the right advice.
func IsNetwork(err error) bool {
	var ghErr *Error
	return errors.As(err, &ghErr) && ghErr.Kind == KindNetwork
}

// IsNotFound reports whether err was a 404 from the API.
func IsNotFound(err error) bool {
	var ghErr *Error
	return errors.As(err, &ghErr) && ghErr.Kind == KindNotFound
}

// Client talks to the GitHub REST API for one repository.
type Client struct {
	baseURL string
	token   string
	owner   string
	repo    string
	http    *http.Client
	log     *slog.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a different API root, used by tests
// and GitHub Enterprise installs.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithProxy routes requests through an outbound HTTP proxy.
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		parsed, err := url.Parse(proxyURL)
		if err != nil || proxyURL == "" {
			return
		}
		c.http.Transport = &http.Transport{Proxy: http.ProxyURL(parsed)}
	}
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the client logger.
func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient builds a client for owner/repo authenticated with token.
func NewClient(token, owner, repo string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		token:   token,
		owner:   owner,
		repo:    repo,
		http:    &http.Client{Timeout: clientTimeout},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetRef returns the tip commit SHA of a branch.
func (c *Client) GetRef(ctx context.Context, branch string) (string, error) {
	var payload struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	path := fmt.Sprintf("/repos/%s/%s/git/ref/heads/%s", c.owner, c.repo, branch)
	if err := c.do(ctx, "get ref", http.MethodGet, path, nil, &payload); err != nil {
		return "", err
	}
	return payload.Object.SHA, nil
}

// CreateRef creates a new branch pointing at sha.
func (c *Client) CreateRef(ctx context.Context, branch, sha string) error {
	body := map[string]string{
		"ref": "refs/heads/" + branch,
		"sha": sha,
	}
	path := fmt.Sprintf("/repos/%s/%s/git/refs", c.owner, c.repo)
	return c.do(ctx, "create ref", http.MethodPost, path, body, nil)
}

// FileContent is the decoded state of a repository file.
type FileContent struct {
	Text string
	SHA  string
}

// GetContent reads a file at ref. Callers use IsNotFound to tolerate
// files that do not exist yet.
func (c *Client) GetContent(ctx context.Context, filePath, ref string) (*FileContent, error) {
	var payload struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
		SHA      string `json:"sha"`
	}
	path := fmt.Sprintf("/repos/%s/%s/contents/%s?ref=%s", c.owner, c.repo, filePath, url.QueryEscape(ref))
	if err := c.do(ctx, "get content", http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}

	text := payload.Content
	if payload.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(payload.Content)
		if err != nil {
			return nil, &Error{Kind: KindGeneric, Op: "get content", Msg: "decode file content", Err: err}
		}
		text = string(decoded)
	}
	return &FileContent{Text: text, SHA: payload.SHA}, nil
}

// PutContent creates or updates a file on branch as a single commit.
// A non-empty sha makes the update conditional on no concurrent change.
func (c *Client) PutContent(ctx context.Context, filePath, branch, message, content, sha string) error {
	body := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString([]byte(content)),
		"branch":  branch,
	}
	if sha != "" {
		body["sha"] = sha
	}
	path := fmt.Sprintf("/repos/%s/%s/contents/%s", c.owner, c.repo, filePath)
	return c.do(ctx, "put content", http.MethodPut, path, body, nil)
}

// PullRequest identifies an opened pull request.
type PullRequest struct {
	URL    string `json:"html_url"`
	Number int    `json:"number"`
}

// CreatePullRequest opens a PR from head into base.
func (c *Client) CreatePullRequest(ctx context.Context, title, body, head, base string) (*PullRequest, error) {
	reqBody := map[string]string{
		"title": title,
		"body":  body,
		"head":  head,
		"base":  base,
	}
	var pr PullRequest
	path := fmt.Sprintf("/repos/%s/%s/pulls", c.owner, c.repo)
	if err := c.do(ctx, "create pull request", http.MethodPost, path, reqBody, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// AddLabels attaches labels to an issue or pull request.
func (c *Client) AddLabels(ctx context.Context, number int, labels []string) error {
	body := map[string][]string{"labels": labels}
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/labels", c.owner, c.repo, number)
	return c.do(ctx, "add labels", http.MethodPost, path, body, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, target any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindGeneric, Op: op, Msg: "encode request", Err: err}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Kind: KindGeneric, Op: op, Msg: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.log.Debug("github api call", "op", op, "method", method, "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Msg: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(op, resp)
	}
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return &Error{Kind: KindGeneric, Op: op, Msg: "decode response", Err: err}
		}
	}
	return nil
}

func (c *Client) statusError(op string, resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	msg := payload.Message
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &Error{Kind: KindAuth, Op: op, Msg: msg}
	case http.StatusForbidden:
		return &Error{Kind: KindForbidden, Op: op, Msg: msg}
	case http.StatusNotFound:
		return &Error{Kind: KindNotFound, Op: op, Msg: msg}
	}
	return &Error{Kind: KindGeneric, Op: op, Msg: msg}
}
