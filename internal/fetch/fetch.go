// Package fetch turns submission inputs (a URL or an uploaded file)
// into plain text suitable for model extraction.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html"
)

// userAgent mimics a desktop browser; several event sites refuse
// requests from obvious bot agents.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// imageExtensions marks uploads that would need OCR.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp"}

// Error reports a failed content fetch.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fetcher retrieves and cleans source content.
type Fetcher struct {
	client *http.Client
	log    *slog.Logger
}

// New returns a fetcher. A nil client gets a default with a modest
// timeout; a nil logger falls back to slog.Default().
func New(client *http.Client, log *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{client: client, log: log}
}

// FromURL performs a GET against url and returns the page's visible
// text: script and style blocks removed with their content, remaining
// markup dropped, whitespace runs collapsed to single spaces.
func (f *Fetcher) FromURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &Error{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &Error{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{URL: url, Err: err}
	}

	text := StripMarkup(string(body))
	f.log.Debug("fetched web content", "url", url, "raw_bytes", len(body), "text_length", len(text))
	return text, nil
}

// FromFile passes uploaded text through unchanged. Image uploads get a
// placeholder instead: real OCR is out of scope here and the
// placeholder makes that explicit to the model and to reviewers.
func (f *Fetcher) FromFile(content, fileName string) string {
	if isImageName(fileName) || sniffsAsImage(content, fileName) {
		f.log.Debug("image upload, substituting OCR placeholder", "file", fileName)
		return fmt.Sprintf("[Image file: %s. OCR processing would be applied here in production.]", fileName)
	}
	return content
}

func isImageName(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// sniffsAsImage catches image payloads uploaded without a telling
// extension. Detection only runs when the name gives no hint.
func sniffsAsImage(content, name string) bool {
	if strings.Contains(name, ".") {
		return false
	}
	mt := mimetype.Detect([]byte(content))
	return strings.HasPrefix(mt.String(), "image/")
}

// StripMarkup reduces an HTML document to its visible text. Script and
// style elements are skipped entirely, including their character data.
func StripMarkup(raw string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(raw))

	var b strings.Builder
	skipDepth := 0
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or malformed input; either way keep what we have.
			return collapseWhitespace(b.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if skippedElement(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skippedElement(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(tokenizer.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func skippedElement(name string) bool {
	return name == "script" || name == "style"
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
