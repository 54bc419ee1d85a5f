package github

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tyler-sommer/stick"

	"github.com/openevents/submitbot/internal/activity"
	"github.com/openevents/submitbot/internal/dataset"
)

//go:embed templates/*.twig
var templateFS embed.FS

// prLabels are attached to every opened pull request.
var prLabels = []string{"auto-generated", "needs-review"}

// Metadata describes the submission behind a pull request.
type Metadata struct {
	ActivityTitle string
	SubmittedBy   string
	SourceURL     string
}

// Publisher proposes new records as pull requests. Each submission
// lands on its own timestamp-named branch, never on the default branch
// directly, which trades open-PR proliferation for the absence of
// merge races.
type Publisher struct {
	client        *Client
	defaultBranch string
	env           *stick.Env
	bodyTemplate  string
	log           *slog.Logger
	now           func() time.Time
}

// NewPublisher wires a publisher around a client. A nil logger falls
// back to slog.Default().
func NewPublisher(client *Client, defaultBranch string, log *slog.Logger) (*Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("publisher: client is required")
	}
	if defaultBranch == "" {
		defaultBranch = "main"
	}
	if log == nil {
		log = slog.Default()
	}
	body, err := templateFS.ReadFile("templates/pr_body.twig")
	if err != nil {
		return nil, fmt.Errorf("publisher: load body template: %w", err)
	}
	return &Publisher{
		client:        client,
		defaultBranch: defaultBranch,
		env:           stick.New(nil),
		bodyTemplate:  string(body),
		log:           log,
		now:           time.Now,
	}, nil
}

// Publish appends the YAML fragment to the category's data file on a
// fresh branch and opens a labeled pull request. The steps run in a
// fixed order with no retries; any step failure is an overall publish
// failure with no partial-success state.
func (p *Publisher) Publish(ctx context.Context, yamlFragment string, category activity.Category, meta Metadata) (*PullRequest, error) {
	fileName, ok := dataset.FileName(category)
	if !ok {
		return nil, &Error{Kind: KindGeneric, Op: "publish", Msg: fmt.Sprintf("invalid category: %s", category)}
	}
	filePath := "data/" + fileName

	baseSHA, err := p.client.GetRef(ctx, p.defaultBranch)
	if err != nil {
		return nil, p.describe(err)
	}
	p.log.Debug("resolved base", "branch", p.defaultBranch, "sha", baseSHA)

	branch := fmt.Sprintf("add-activity-%d", p.now().UnixMilli())
	if err := p.client.CreateRef(ctx, branch, baseSHA); err != nil {
		return nil, p.describe(err)
	}
	p.log.Debug("created branch", "branch", branch)

	var currentText, currentSHA string
	file, err := p.client.GetContent(ctx, filePath, branch)
	switch {
	case err == nil:
		currentText = file.Text
		currentSHA = file.SHA
	case IsNotFound(err):
		// First record in this category; the commit creates the file.
	default:
		return nil, p.describe(err)
	}

	newContent := yamlFragment
	if currentText != "" {
		newContent = currentText + "\n\n" + yamlFragment
	}
	message := fmt.Sprintf("Add activity: %s", meta.ActivityTitle)
	if err := p.client.PutContent(ctx, filePath, branch, message, newContent, currentSHA); err != nil {
		return nil, p.describe(err)
	}
	p.log.Debug("committed data file", "path", filePath, "branch", branch)

	body, err := p.renderBody(meta)
	if err != nil {
		return nil, &Error{Kind: KindGeneric, Op: "publish", Msg: "render body", Err: err}
	}
	title := fmt.Sprintf("🤖 Add Activity: %s", meta.ActivityTitle)
	pr, err := p.client.CreatePullRequest(ctx, title, body, branch, p.defaultBranch)
	if err != nil {
		return nil, p.describe(err)
	}
	p.log.Info("opened pull request", "number", pr.Number, "url", pr.URL)

	if err := p.client.AddLabels(ctx, pr.Number, prLabels); err != nil {
		return nil, p.describe(err)
	}
	return pr, nil
}

func (p *Publisher) renderBody(meta Metadata) (string, error) {
	var out strings.Builder
	err := p.env.Execute(p.bodyTemplate, &out, map[string]stick.Value{
		"title":        meta.ActivityTitle,
		"submitted_by": meta.SubmittedBy,
		"source_url":   meta.SourceURL,
	})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

// describe augments classified errors with repository-specific advice.
func (p *Publisher) describe(err error) error {
	ghErr, ok := err.(*Error)
	if !ok {
		return err
	}
	switch ghErr.Kind {
	case KindNotFound:
		ghErr.Msg = fmt.Sprintf("repository %s/%s or ref not found, check GITHUB_OWNER and GITHUB_REPO (%s)",
			p.client.owner, p.client.repo, ghErr.Msg)
	case KindAuth:
		ghErr.Msg = fmt.Sprintf("GitHub authentication failed, check your GITHUB_TOKEN (%s)", ghErr.Msg)
	case KindForbidden:
		ghErr.Msg = fmt.Sprintf("GitHub access forbidden, the token may lack repo permissions (%s)", ghErr.Msg)
	}
	return ghErr
}
