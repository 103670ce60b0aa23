package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/postrelay/internal/post"
)

const pagePath = "/pg/kantineKliversala/posts/"

func newPageServer(t *testing.T, status int, contentType string, body []byte) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pagePath {
			http.NotFound(w, r)
			return
		}
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestFacebook(t *testing.T, page string, opts FacebookOptions) *FacebookSource {
	t.Helper()
	fs, err := NewFacebook(page, opts)
	if err != nil {
		t.Fatalf("NewFacebook: %v", err)
	}
	return fs
}

func TestNewFacebook_InvalidURL(t *testing.T) {
	if _, err := NewFacebook("ftp://example.com/page", FacebookOptions{}); err == nil {
		t.Fatal("expected error for ftp url")
	}
	if _, err := NewFacebook("://bad", FacebookOptions{}); err == nil {
		t.Fatal("expected error for unparseable url")
	}
}

func TestFacebookFetch_Page(t *testing.T) {
	body, err := os.ReadFile(filepath.Join("testdata", "facebook_page.html"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	ts := newPageServer(t, http.StatusOK, "text/html; charset=utf-8", body)

	fs := newTestFacebook(t, ts.URL+pagePath, FacebookOptions{})
	posts, err := fs.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	want := []post.Post{
		{ID: "2471140943148075", Text: "Lunch offer"},
		{
			ID:   "2465890140339822",
			Text: "Daily menu",
			Images: []post.Image{
				{URL: "https://cdn.example.com/a.jpg"},
				{URL: "https://cdn.example.com/b.jpg"},
			},
		},
		{ID: "2460000000000001", Text: "Visit our menu today"},
		{ID: "2450000000000002"},
	}
	if diff := cmp.Diff(want, posts); diff != "" {
		t.Errorf("posts mismatch (-want +got):\n%s", diff)
	}
}

func TestFacebookFetch_SendsUserAgent(t *testing.T) {
	var gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer ts.Close()

	fs := newTestFacebook(t, ts.URL+pagePath, FacebookOptions{UserAgent: "rusty", Timeout: 5 * time.Second})
	if _, err := fs.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotUA != "rusty" {
		t.Errorf("user agent = %q, want rusty", gotUA)
	}
}

func TestFacebookFetch_NoPosts(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty html", "<html><body><div>empty</div></body></html>"},
		{"corrupt html", "something"},
		{"empty body", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newPageServer(t, http.StatusOK, "text/html", []byte(tt.body))
			fs := newTestFacebook(t, ts.URL+pagePath, FacebookOptions{})

			posts, err := fs.Fetch(context.Background())
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if len(posts) != 0 {
				t.Errorf("got %d posts, want 0", len(posts))
			}
		})
	}
}

func TestFacebookFetch_ErrorStatus(t *testing.T) {
	ts := newPageServer(t, http.StatusBadRequest, "text/plain", []byte("error"))
	fs := newTestFacebook(t, ts.URL+pagePath, FacebookOptions{})

	_, err := fs.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for 400")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fetchErr.Status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", fetchErr.Status)
	}
	if fetchErr.Body != "error" {
		t.Errorf("body = %q, want error", fetchErr.Body)
	}
	if !strings.Contains(err.Error(), "error") {
		t.Errorf("error message %q should carry the response body", err)
	}
}

func TestFacebookFetch_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL + pagePath
	ts.Close()

	fs := newTestFacebook(t, url, FacebookOptions{Timeout: time.Second})
	_, err := fs.Fetch(context.Background())

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fetchErr.Status != 0 {
		t.Errorf("status = %d, want 0 for transport failure", fetchErr.Status)
	}
	if fetchErr.Err == nil {
		t.Error("expected wrapped transport error")
	}
}

func TestFacebookFetch_DecodesCharset(t *testing.T) {
	page := "<html><body><div id=\"pagelet_timeline_main_column\"><div><div></div><div><div>" +
		"<div><div data-testid=\"story-subtitle\" id=\"s;1;\"></div>" +
		"<div data-testid=\"post_message\"><p>Caf\xe9</p></div></div>" +
		"</div></div></div></div></body></html>"
	ts := newPageServer(t, http.StatusOK, "text/html; charset=iso-8859-1", []byte(page))
	fs := newTestFacebook(t, ts.URL+pagePath, FacebookOptions{})

	posts, err := fs.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("got %d posts, want 1", len(posts))
	}
	if posts[0].Text != "Café" {
		t.Errorf("text = %q, want Café", posts[0].Text)
	}
}

func TestCleanText(t *testing.T) {
	strip := []*regexp.Regexp{regexp.MustCompile(`#\w+`)}
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"escaped dash", `\- soup`, "- soup"},
		{"ellipsis", "more to come...", "more to come"},
		{"see more word", "menu See More", "menu"},
		{"see more link", "menu [See more](/page/posts/1)", "menu"},
		{"see more link capitalised", "menu [See More](/page/posts/1)", "menu"},
		{"link label kept", "test [Skatīt vairāk](/kantine/posts/2457708144491355)", "test Skatīt vairāk"},
		{"multiple links", "[a](/x) and [b](/y)", "a and b"},
		{"strip pattern", "lunch #promo", "lunch"},
		{"blank lines", "a\n\n\n\nb", "a\n\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanText(tt.input, strip); got != tt.want {
				t.Errorf("cleanText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFetchErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *FetchError
		want string
	}{
		{"transport", &FetchError{URL: "u", Err: errors.New("refused")}, "fetch u: refused"},
		{"status with body", &FetchError{URL: "u", Status: 400, Body: "error"}, "fetch u: status 400: error"},
		{"status only", &FetchError{URL: "u", Status: 502}, "fetch u: status 502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}
