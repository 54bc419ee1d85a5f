package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>OpenConf 2025</title>
  <style>body { color: red; }</style>
  <script>var tracking = "do not leak";</script>
</head>
<body>
  <h1>OpenConf   2025</h1>
  <p>deadline
  June 1</p>
  <script type="text/javascript">console.log("more js");</script>
</body>
</html>`

func TestFromURLStripsMarkup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	text, err := New(srv.Client(), nil).FromURL(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Contains(t, text, "OpenConf 2025")
	assert.Contains(t, text, "deadline June 1")
	assert.NotContains(t, text, "<")
	assert.NotContains(t, text, "tracking")
	assert.NotContains(t, text, "console.log")
	assert.NotContains(t, text, "color: red")
	assert.NotContains(t, text, "  ", "whitespace runs must be collapsed")
}

func TestFromURLNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(srv.Client(), nil).FromURL(context.Background(), srv.URL)
	require.Error(t, err)

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
}

func TestFromURLConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	_, err := New(nil, nil).FromURL(context.Background(), srv.URL)
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Zero(t, fe.StatusCode)
}

func TestFromFilePassThrough(t *testing.T) {
	f := New(nil, nil)
	assert.Equal(t, "plain submission text", f.FromFile("plain submission text", "notes.txt"))
}

func TestFromFileImagePlaceholder(t *testing.T) {
	f := New(nil, nil)
	for _, name := range []string{"poster.png", "banner.JPG", "flyer.webp"} {
		out := f.FromFile("binarystuff", name)
		assert.Contains(t, out, name)
		assert.Contains(t, out, "OCR processing would be applied here in production")
	}
}

func TestFromFileSniffsExtensionlessImage(t *testing.T) {
	// Minimal PNG magic bytes.
	png := string([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0})
	out := New(nil, nil).FromFile(png, "upload")
	assert.Contains(t, out, "OCR processing")
}

func TestStripMarkupPlainText(t *testing.T) {
	assert.Equal(t, "no markup at all", StripMarkup("no  markup\n at\tall"))
}
