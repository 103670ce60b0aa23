package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"

	"github.com/ppiankov/postrelay/internal/post"
	"github.com/ppiankov/postrelay/internal/textclean"
)

const (
	facebookSourceName = "facebook"

	postsSelector          = "#pagelet_timeline_main_column > div:first-of-type > div:nth-child(2) > div:first-of-type > div"
	imageContainerSelector = postsSelector + " > div > div > div > div > div > div > div:not(:nth-child(1))"
	idSelector             = `div[data-testid="story-subtitle"]`
	textSelector           = `div[data-testid="post_message"] > *:first-child`
	imageSelector          = "img[src]"

	// maxErrorBody caps how much of a failed response is kept for diagnostics.
	maxErrorBody = 4096
)

var seeMoreLinkRe = regexp.MustCompile(`(?i)\[see more\]\([^)]*\)`)

// FacebookOptions configures a FacebookSource.
type FacebookOptions struct {
	UserAgent     string
	Timeout       time.Duration
	StripPatterns []*regexp.Regexp
}

// FacebookSource scrapes the server-rendered timeline of a public page.
type FacebookSource struct {
	page      string
	client    *resty.Client
	converter *md.Converter
	strip     []*regexp.Regexp
}

// NewFacebook creates a source for one page URL.
func NewFacebook(page string, opts FacebookOptions) (*FacebookSource, error) {
	u, err := url.Parse(page)
	if err != nil {
		return nil, fmt.Errorf("facebook: parse page url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("facebook: page url %q must be http or https", page)
	}

	client := resty.New()
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	return &FacebookSource{
		page:      page,
		client:    client,
		converter: md.NewConverter("", true, nil),
		strip:     opts.StripPatterns,
	}, nil
}

func (fs *FacebookSource) Name() string {
	return facebookSourceName + ":" + fs.page
}

func (fs *FacebookSource) Fetch(ctx context.Context) ([]post.Post, error) {
	res, err := fs.client.R().SetContext(ctx).Get(fs.page)
	if err != nil {
		return nil, &FetchError{Source: fs.Name(), URL: fs.page, Err: err}
	}
	if !res.IsSuccess() {
		return nil, &FetchError{
			Source: fs.Name(),
			URL:    fs.page,
			Status: res.StatusCode(),
			Body:   truncate(res.String(), maxErrorBody),
		}
	}

	body, err := charset.NewReader(bytes.NewReader(res.Body()), res.Header().Get("Content-Type"))
	if err != nil {
		return nil, &FetchError{Source: fs.Name(), URL: fs.page, Status: res.StatusCode(), Err: fmt.Errorf("decode charset: %w", err)}
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, &FetchError{Source: fs.Name(), URL: fs.page, Status: res.StatusCode(), Err: fmt.Errorf("parse html: %w", err)}
	}

	return fs.parse(doc), nil
}

func (fs *FacebookSource) parse(doc *goquery.Document) []post.Post {
	var posts []post.Post
	doc.Find(postsSelector).Each(func(_ int, s *goquery.Selection) {
		id, ok := storyID(s)
		if !ok {
			return
		}

		posts = append(posts, post.Post{
			ID:     id,
			Text:   fs.storyText(s),
			Images: storyImages(s),
		})
	})
	return posts
}

// storyID extracts the post id from the subtitle element's id attribute,
// which has the form "<prefix>;<post id>;...".
func storyID(s *goquery.Selection) (string, bool) {
	var raw string
	s.Find(idSelector).Each(func(_ int, el *goquery.Selection) {
		if v, ok := el.Attr("id"); ok && v != "" {
			raw = v
		}
	})
	if raw == "" {
		return "", false
	}

	fields := strings.Split(raw, ";")
	if len(fields) < 2 {
		return "", false
	}
	id := strings.ReplaceAll(fields[1], `"`, "")
	if strings.TrimSpace(id) == "" {
		return "", false
	}
	return id, true
}

func (fs *FacebookSource) storyText(s *goquery.Selection) string {
	var b strings.Builder
	s.Find(textSelector).Each(func(_ int, el *goquery.Selection) {
		html, err := el.Html()
		if err != nil {
			return
		}
		b.WriteString(html)
	})
	if b.Len() == 0 {
		return ""
	}

	text, err := fs.converter.ConvertString(b.String())
	if err != nil {
		return ""
	}
	return cleanText(text, fs.strip)
}

func storyImages(s *goquery.Selection) []post.Image {
	var images []post.Image
	s.Find(imageContainerSelector).Each(func(_ int, container *goquery.Selection) {
		container.Find(imageSelector).Each(func(_ int, img *goquery.Selection) {
			src, _ := img.Attr("src")
			if src == "" {
				return
			}
			images = append(images, post.Image{URL: src})
		})
	})
	return images
}

// cleanText removes scraping artifacts from rendered Markdown.
func cleanText(text string, strip []*regexp.Regexp) string {
	text = strings.ReplaceAll(text, `\-`, "-")
	text = strings.ReplaceAll(text, "...", "")
	text = seeMoreLinkRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "See More", "")
	text = textclean.StripMarkdownLinks(text)
	text = textclean.Strip(text, strip)
	return textclean.Tidy(text)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
