package source

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ppiankov/postrelay/internal/post"
	"github.com/ppiankov/postrelay/internal/textclean"
)

const (
	rssSourceName   = "rss"
	rssFetchTimeout = 30 * time.Second
	rssUserAgent    = "Mozilla/5.0 (compatible; postrelay/1.0; +https://github.com/ppiankov/postrelay)"
	rssMaxWorkers   = 10
	rssMaxRetries   = 3
	rssDomainDelay  = 3 * time.Second
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s{3,}`)
)

// FeedOptions configures a FeedSource.
type FeedOptions struct {
	UserAgent     string
	Timeout       time.Duration
	StripPatterns []*regexp.Regexp
}

// FeedSource fetches posts from RSS/Atom feeds.
type FeedSource struct {
	feeds     []string
	userAgent string
	timeout   time.Duration
	strip     []*regexp.Regexp
}

// NewFeed creates an RSS/Atom source. At least one feed URL is required.
func NewFeed(feeds []string, opts FeedOptions) (*FeedSource, error) {
	if len(feeds) == 0 {
		return nil, errors.New("rss: at least one feed URL is required")
	}
	fs := &FeedSource{
		feeds:     feeds,
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		strip:     opts.StripPatterns,
	}
	if fs.userAgent == "" {
		fs.userAgent = rssUserAgent
	}
	if fs.timeout <= 0 {
		fs.timeout = rssFetchTimeout
	}
	return fs, nil
}

func (fs *FeedSource) Name() string {
	return rssSourceName
}

// Fetch reads every feed and returns their items concatenated in feed order.
// Feeds on different hosts are fetched concurrently; feeds sharing a host are
// fetched one after another. The first failing feed fails the whole fetch.
func (fs *FeedSource) Fetch(ctx context.Context) ([]post.Post, error) {
	type job struct {
		index int
		url   string
	}
	type result struct {
		posts []post.Post
		err   error
	}

	// Group feeds by domain so same-domain requests are serialized.
	var domains []string
	domainFeeds := make(map[string][]job)
	for i, feedURL := range fs.feeds {
		d := feedDomain(feedURL)
		if _, ok := domainFeeds[d]; !ok {
			domains = append(domains, d)
		}
		domainFeeds[d] = append(domainFeeds[d], job{index: i, url: feedURL})
	}

	results := make([]result, len(fs.feeds))
	domainJobs := make(chan []job, len(domains))

	workers := rssMaxWorkers
	if len(domains) < workers {
		workers = len(domains)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for jobs := range domainJobs {
				for i, j := range jobs {
					if i > 0 {
						rssSleepFunc(rssDomainDelay)
					}
					items, err := fs.fetchWithRetry(ctx, j.url)
					results[j.index] = result{posts: items, err: err}
				}
			}
		}()
	}

	for _, d := range domains {
		domainJobs <- domainFeeds[d]
	}
	close(domainJobs)
	wg.Wait()

	var posts []post.Post
	for i, r := range results {
		if r.err != nil {
			return nil, asFetchError(fs.feeds[i], r.err)
		}
		posts = append(posts, r.posts...)
	}

	return posts, nil
}

func asFetchError(feedURL string, err error) error {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr
	}
	fe := &FetchError{Source: rssSourceName, URL: feedURL, Err: err}
	var httpErr gofeed.HTTPError
	if errors.As(err, &httpErr) {
		fe.Status = httpErr.StatusCode
		fe.Body = httpErr.Status
		fe.Err = nil
	}
	return fe
}

// feedDomain extracts the host from a feed URL for rate limiting grouping.
func feedDomain(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Host == "" {
		return feedURL
	}
	return u.Host
}

// rssTransport injects a User-Agent header into every request.
type rssTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *rssTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

// rssSleepFunc is the function used for retry backoff delays.
// It defaults to time.Sleep but can be overridden in tests.
var rssSleepFunc = time.Sleep

func (fs *FeedSource) fetchWithRetry(ctx context.Context, feedURL string) ([]post.Post, error) {
	var lastErr error
	for attempt := 0; attempt < rssMaxRetries; attempt++ {
		posts, err := fs.fetchFeed(ctx, feedURL)
		if err == nil {
			return posts, nil
		}
		if !isRetryableError(err) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		if attempt < rssMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second // 1s, 2s, 4s
			rssSleepFunc(backoff)
		}
	}
	return nil, lastErr
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var httpErr gofeed.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500
	}
	s := err.Error()
	// Timeout errors
	if strings.Contains(s, "timeout") || strings.Contains(s, "Timeout") {
		return true
	}
	// Connection errors
	return strings.Contains(s, "connection refused") || strings.Contains(s, "no such host")
}

func (fs *FeedSource) fetchFeed(ctx context.Context, feedURL string) ([]post.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, fs.timeout)
	defer cancel()

	fp := gofeed.NewParser()
	fp.Client = &http.Client{
		Timeout:   fs.timeout,
		Transport: &rssTransport{base: http.DefaultTransport, userAgent: fs.userAgent},
	}
	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feedURL, err)
	}

	return fs.postsFromFeed(feed), nil
}

func (fs *FeedSource) postsFromFeed(feed *gofeed.Feed) []post.Post {
	var posts []post.Post
	for _, item := range feed.Items {
		id := itemID(item)
		if id == "" {
			continue
		}
		posts = append(posts, post.Post{
			ID:     id,
			Text:   textclean.Tidy(textclean.Strip(itemText(item), fs.strip)),
			Images: itemImages(item),
		})
	}
	return posts
}

func itemID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	return item.Link
}

func itemText(item *gofeed.Item) string {
	raw := item.Content
	if raw == "" {
		raw = item.Description
	}

	text := stripHTML(raw)

	if item.Title != "" && !strings.Contains(text, item.Title) {
		text = item.Title + "\n\n" + text
	}

	return strings.TrimSpace(text)
}

// itemImages returns the item image followed by image enclosures, without
// duplicates.
func itemImages(item *gofeed.Item) []post.Image {
	var images []post.Image
	seen := make(map[string]bool)
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		images = append(images, post.Image{URL: u})
	}

	if item.Image != nil {
		add(item.Image.URL)
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			add(enc.URL)
		}
	}
	return images
}

func stripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = whitespaceRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
