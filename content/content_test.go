package content

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/coursesync/canvas"
	"github.com/hazyhaar/coursesync/docpipe"
	"github.com/hazyhaar/coursesync/ledger"
)

// redirectFetcher sends every request, whatever its host, to one test server.
type redirectFetcher struct {
	srv *httptest.Server
}

func (f *redirectFetcher) Get(ctx context.Context, raw string) ([]byte, error) {
	return f.GetRaw(ctx, raw)
}

func (f *redirectFetcher) GetRaw(ctx context.Context, raw string) ([]byte, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	target, _ := url.Parse(f.srv.URL)
	u.Scheme, u.Host = target.Scheme, target.Host
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.srv.Client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return body, nil
}

var _ canvas.Fetcher = (*redirectFetcher)(nil)

const watchPage = `<html><head><title>Lecture - YouTube</title></head><body>
<script>var ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[
{"baseUrl":"https://www.youtube.com/api/timedtext?v=abc123&lang=fr","languageCode":"fr"},
{"baseUrl":"https://www.youtube.com/api/timedtext?v=abc123&lang=en","languageCode":"en"}]}}};</script>
</body></html>`

// fakeLMS serves the routes the normalizer reaches, counting downloads.
func fakeLMS(t *testing.T, downloads *atomic.Int32) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()

	r.Get("/watch", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("v") != "abc123" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, watchPage)
	})
	r.Get("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lang") != "en" || r.URL.Query().Get("fmt") != "vtt" {
			http.Error(w, "wrong track", http.StatusBadRequest)
			return
		}
		io.WriteString(w, "WEBVTT\n\n1\n00:00:00.000 --> 00:00:02.000\nHello <b>world</b>\n")
	})
	r.Get("/Panopto/Pages/Viewer/DeliveryInfo.aspx", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("deliveryId") {
		case "with-captions":
			io.WriteString(w, `{"Delivery":{"SessionName":"Lecture 4","Captions":[{"Url":"https://uni.hosted.panopto.com/captions/4.srt","Language":"English_USA"}]}}`)
		case "no-captions":
			io.WriteString(w, `{"Delivery":{"SessionName":"Lecture 3","Captions":[]}}`)
		default:
			http.Error(w, "forbidden", http.StatusForbidden)
		}
	})
	r.Get("/captions/4.srt", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "1\n00:00:01,000 --> 00:00:03,000\nWelcome back\n\n2\n00:00:03,000 --> 00:00:05,000\nto <i>week four</i>\n")
	})
	r.Get("/api/v1/courses/{course}/files/{file}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "file")
		names := map[string]string{"7": "notes.txt", "8": "week 1.zip", "9": "broken.pdf"}
		name, ok := names[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"id":%s,"filename":%q,"display_name":%q,"url":"https://lms.example.edu/files/%s/download","size":5,"updated_at":"2025-01-10T00:00:00Z"}`,
			id, name, name, id)
	})
	r.Get("/files/{file}/download", func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		switch chi.URLParam(r, "file") {
		case "7":
			io.WriteString(w, "hello")
		case "8":
			w.Write(buildZip(t, map[string]string{"week1/main.py": "print('hi')\n"}))
		case "9":
			io.WriteString(w, "<!DOCTYPE html><html><body>Log in</body></html>")
		default:
			http.Error(w, "forbidden", http.StatusForbidden)
		}
	})
	r.Get("/article", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body><nav>menu</nav><main><h1>Reading</h1><p>Chapter one.</p><script>x()</script></main></body></html>`)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(w, body)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestNormalizer(t *testing.T, l FileLedger) (*Normalizer, *atomic.Int32) {
	t.Helper()
	var downloads atomic.Int32
	srv := fakeLMS(t, &downloads)
	return NewNormalizer(&redirectFetcher{srv: srv}, Config{Ledger: l, BaseURL: "https://lms.example.edu"}), &downloads
}

func checkExtractedFlag(t *testing.T, rec Record) {
	t.Helper()
	want := rec.Content != "" && !docpipe.Failed(rec.Content)
	if rec.Extracted != want {
		t.Errorf("extracted = %v for content %q", rec.Extracted, rec.Content)
	}
}

func TestNormalize_Variants(t *testing.T) {
	// WHAT: Each item variant produces the expected content and a consistent extracted flag.
	// WHY: Downstream reports rely only on the flag, so every branch must agree with Failed.
	n, _ := newTestNormalizer(t, nil)
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name      string
		item      canvas.ModuleItem
		page      *string
		contains  string
		extracted bool
		videoID   string
	}{
		{
			name:      "youtube transcript prefers english",
			item:      canvas.ModuleItem{Title: "Intro video", Type: "ExternalUrl", ExternalURL: "https://youtu.be/abc123"},
			contains:  "Hello world",
			extracted: true,
			videoID:   "abc123",
		},
		{
			name:      "panopto captions",
			item:      canvas.ModuleItem{Title: "Lecture 4", Type: "ExternalUrl", ExternalURL: "https://uni.hosted.panopto.com/Panopto/Pages/Viewer.aspx?id=with-captions"},
			contains:  "Welcome back to week four",
			extracted: true,
			videoID:   "with-captions",
		},
		{
			name:      "panopto without captions names the session",
			item:      canvas.ModuleItem{Title: "Lecture 3", Type: "ExternalUrl", ExternalURL: "https://uni.hosted.panopto.com/Panopto/Pages/Viewer.aspx?id=no-captions"},
			contains:  "[Panopto Video: Lecture 3]",
			extracted: false,
			videoID:   "no-captions",
		},
		{
			name:      "panopto delivery refused",
			item:      canvas.ModuleItem{Title: "Lecture 2", Type: "ExternalUrl", ExternalURL: "https://uni.hosted.panopto.com/Panopto/Pages/Viewer.aspx?id=secret"},
			contains:  "[Panopto video - could not extract transcript]",
			extracted: false,
			videoID:   "secret",
		},
		{
			name:      "vimeo",
			item:      canvas.ModuleItem{Title: "Demo", Type: "ExternalUrl", ExternalURL: "https://vimeo.com/12345"},
			contains:  "[Vimeo video: https://vimeo.com/12345]",
			extracted: false,
		},
		{
			name:      "webpage",
			item:      canvas.ModuleItem{Title: "Reading", Type: "ExternalUrl", ExternalURL: "https://blog.example.org/article"},
			contains:  "## Reading\n\nChapter one.",
			extracted: true,
		},
		{
			name:      "webpage unreachable",
			item:      canvas.ModuleItem{Title: "Gone", Type: "ExternalUrl", ExternalURL: "https://blog.example.org/missing"},
			contains:  "[Could not extract webpage content:",
			extracted: false,
		},
		{
			name:      "kaltura tool",
			item:      canvas.ModuleItem{Title: "Recording", Type: "ExternalTool", URL: "https://kaltura.example.edu/launch"},
			contains:  "[Kaltura video: Recording]",
			extracted: false,
		},
		{
			name:      "unknown tool",
			item:      canvas.ModuleItem{Title: "Publisher", Type: "ExternalTool", URL: "https://tools.example.com/lti"},
			contains:  "[External tool: Publisher]",
			extracted: false,
		},
		{
			name:      "quiz",
			item:      canvas.ModuleItem{Title: "Quiz 1", Type: "Quiz"},
			contains:  "[Unsupported item type: quiz",
			extracted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := n.Normalize(ctx, FromModuleItem(tt.item), dir)
			if !strings.Contains(rec.Content, tt.contains) {
				t.Errorf("content = %q, want it to contain %q", rec.Content, tt.contains)
			}
			if rec.Extracted != tt.extracted {
				t.Errorf("extracted = %v, want %v", rec.Extracted, tt.extracted)
			}
			if rec.VideoID != tt.videoID {
				t.Errorf("video id = %q, want %q", rec.VideoID, tt.videoID)
			}
			if rec.Title != tt.item.Title {
				t.Errorf("title = %q", rec.Title)
			}
			checkExtractedFlag(t, rec)
		})
	}
}

func TestNormalize_Page(t *testing.T) {
	n, _ := newTestNormalizer(t, nil)
	ctx := context.Background()

	it := FromModuleItem(canvas.ModuleItem{Title: "Week 1", Type: "Page", HTMLURL: "https://lms.example.edu/courses/1/pages/week-1"})
	rec := n.Normalize(ctx, it, "")
	if rec.Content != "[Page content not loaded]" || rec.Extracted {
		t.Fatalf("unloaded page = %+v", rec)
	}

	p := it.(*PageItem)
	p.Body, p.Loaded = `<h2>Goals</h2><p>Read <a href="/files/3">chapter 1</a>.</p>`, true
	rec = n.Normalize(ctx, p, "")
	if !rec.Extracted || !strings.Contains(rec.Content, "Goals") || !strings.Contains(rec.Content, "https://lms.example.edu/files/3") {
		t.Fatalf("page = %+v", rec)
	}
	if rec.URL != "https://lms.example.edu/courses/1/pages/week-1" {
		t.Errorf("url = %q", rec.URL)
	}
}

func TestNormalize_SubHeader(t *testing.T) {
	n, _ := newTestNormalizer(t, nil)
	rec := n.Normalize(context.Background(), FromModuleItem(canvas.ModuleItem{Title: "Week 2", Type: "SubHeader"}), "")
	if rec.Content != "" || rec.Extracted {
		t.Fatalf("subheader = %+v", rec)
	}
}

func TestNormalize_Files(t *testing.T) {
	// WHAT: File items resolve metadata, save the download and pick the extractor by name.
	// WHY: Saved binaries count as handled; archives expand next to the download.
	n, _ := newTestNormalizer(t, nil)
	ctx := context.Background()
	dir := t.TempDir()

	txt := n.Normalize(ctx, FromModuleItem(canvas.ModuleItem{Title: "Notes", Type: "File", URL: "https://lms.example.edu/api/v1/courses/1/files/7"}), dir)
	if txt.Content != "[File saved: notes.txt]" || !txt.Extracted {
		t.Errorf("txt = %+v", txt)
	}
	if b, err := os.ReadFile(filepath.Join(dir, "notes.txt")); err != nil || string(b) != "hello" {
		t.Errorf("saved file = %q, %v", b, err)
	}
	if txt.LocalPath != filepath.Join(dir, "notes.txt") {
		t.Errorf("local path = %q", txt.LocalPath)
	}

	zipRec := n.Normalize(ctx, FromModuleItem(canvas.ModuleItem{Title: "Week 1 code", Type: "File", URL: "https://lms.example.edu/api/v1/courses/1/files/8"}), dir)
	if !zipRec.Extracted || zipRec.ExtractedTo != filepath.Join(dir, "week_1") {
		t.Errorf("zip = %+v", zipRec)
	}
	if !strings.Contains(zipRec.Content, "```py\nprint('hi')") {
		t.Errorf("zip manifest = %q", zipRec.Content)
	}
	if _, err := os.Stat(filepath.Join(dir, "week_1", "week1", "main.py")); err != nil {
		t.Errorf("zip entry not extracted: %v", err)
	}

	pdf := n.Normalize(ctx, FromModuleItem(canvas.ModuleItem{Title: "Slides", Type: "File", URL: "https://lms.example.edu/api/v1/courses/1/files/9"}), dir)
	if pdf.Content != docpipe.PDFGotHTML || pdf.Extracted {
		t.Errorf("html-as-pdf = %+v", pdf)
	}

	missing := n.Normalize(ctx, FromModuleItem(canvas.ModuleItem{Title: "Locked", Type: "File", URL: "https://lms.example.edu/api/v1/courses/1/files/404"}), dir)
	if missing.Content != "[File: Locked - could not get download URL]" || missing.Extracted {
		t.Errorf("missing metadata = %+v", missing)
	}

	refused := n.Normalize(ctx, &FileItem{
		Base: Base{Title: "Refused", Type: "file"},
		Meta: &canvas.File{ID: 10, Filename: "refused.pdf", URL: "https://lms.example.edu/files/10/download"},
	}, dir)
	if !strings.HasPrefix(refused.Content, "[Could not download file:") || refused.Extracted {
		t.Errorf("refused = %+v", refused)
	}
}

func TestNormalize_FileLedgerSkipsUnchanged(t *testing.T) {
	// WHAT: A second normalisation of an unchanged file reads the local copy.
	// WHY: Re-syncing a course must not download every file again.
	l := ledger.OpenMemory(t)
	n, downloads := newTestNormalizer(t, l)
	ctx := context.Background()
	dir := t.TempDir()
	item := canvas.ModuleItem{Title: "Notes", Type: "File", URL: "https://lms.example.edu/api/v1/courses/1/files/7"}

	first := n.Normalize(ctx, FromModuleItem(item), dir)
	second := n.Normalize(ctx, FromModuleItem(item), dir)
	if got := downloads.Load(); got != 1 {
		t.Fatalf("downloads = %d, want 1", got)
	}
	if first.Content != second.Content || second.LocalPath != first.LocalPath {
		t.Errorf("records differ: %+v vs %+v", first, second)
	}

	os.Remove(first.LocalPath)
	n.Normalize(ctx, FromModuleItem(item), dir)
	if got := downloads.Load(); got != 2 {
		t.Fatalf("downloads after delete = %d, want 2", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		url  string
		want Kind
	}{
		{"https://www.youtube.com/watch?v=x", KindYouTube},
		{"https://youtu.be/x", KindYouTube},
		{"https://vimeo.com/1", KindVimeo},
		{"https://uni.hosted.panopto.com/Panopto/Pages/Viewer.aspx?id=1", KindPanopto},
		{"https://example.org/paper.PDF", KindPDF},
		{"https://example.org/paper.pdf?download=1#page=2", KindPDF},
		{"https://example.org/essay.docx", KindWord},
		{"https://example.org/essay.doc", KindWord},
		{"https://example.org/deck.pptx", KindPowerPoint},
		{"https://example.org/pdf-guide", KindWebpage},
		{"", KindWebpage},
		{"::not a url::", KindWebpage},
	}
	for _, tt := range tests {
		if got := Classify(tt.url); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.url, got, tt.want)
		}
	}
}

func TestYoutubeID(t *testing.T) {
	tests := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=1": "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ?si=abc":             "dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ":       "dQw4w9WgXcQ",
		"https://m.youtube.com/shorts/dQw4w9WgXcQ":        "dQw4w9WgXcQ",
		"https://www.youtube.com/channel/UC123":           "",
		"https://example.org/watch?v=nope":                "",
	}
	for in, want := range tests {
		if got := youtubeID(in); got != want {
			t.Errorf("youtubeID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFromModuleItem(t *testing.T) {
	it := FromModuleItem(canvas.ModuleItem{Type: "ExternalUrl", ExternalURL: "https://x.org"})
	e, ok := it.(*ExternalURLItem)
	if !ok {
		t.Fatalf("variant = %T", it)
	}
	if e.Title != "Untitled" || e.Type != "externalurl" || e.URL != "https://x.org" {
		t.Errorf("base = %+v", e.Base)
	}

	tool := FromModuleItem(canvas.ModuleItem{Title: "T", Type: "ExternalTool", HTMLURL: "https://lms/items/1", URL: "https://lms/sessionless_launch"})
	if tt, ok := tool.(*ExternalToolItem); !ok || tt.ToolURL != "https://lms/sessionless_launch" || tt.URL != "https://lms/items/1" {
		t.Errorf("tool = %+v", tool)
	}
}
