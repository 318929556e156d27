package metadata

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/net/html"

	hq "novelhub/internal/htmlquery"
)

// PageResolver reads the chapter index and front matter from the static
// publication page. It sees only the chapters present in the served markup;
// index pages that load more chapters with JavaScript need a RemoteResolver.
type PageResolver struct {
	Client *http.Client
	Logger *log.Logger
}

// NewPageResolver creates a PageResolver with a default client.
func NewPageResolver() *PageResolver {
	return &PageResolver{Client: &http.Client{Timeout: 20 * time.Second}}
}

func (p *PageResolver) Resolve(ctx context.Context, pageURL string) (*Resolved, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("page: parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("page: build request: %w", err)
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("page: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("page: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page: status %d", resp.StatusCode)
	}

	doc, err := hq.Parse(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("page: %w", err)
	}
	res, err := parsePublicationPage(doc, base)
	if err != nil {
		return nil, err
	}
	if pages := indexPages(doc); pages > 1 {
		p.logf("[metadata] %s: chapter index has %d pages, only the first was read (%d chapters); set resolver_url to list every chapter",
			pageURL, pages, len(res.URLs))
	}
	return res, nil
}

// indexPages counts the pages offered by the chapter index selector
// (select.sel-toc). Long publications split their index this way and load
// the other pages with JavaScript.
func indexPages(doc *html.Node) int {
	sel := hq.FindFirst(doc, func(n *html.Node) bool {
		return hq.IsElement(n, "select") && hq.HasClasses(n, "sel-toc")
	})
	if sel == nil {
		return 0
	}
	return len(hq.FindAll(sel, hq.Tag("option")))
}

func (p *PageResolver) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// parsePublicationPage applies the publication page selectors:
//
//	.title a         chapter links, newest first on the page
//	.desc-book h1    title
//	#info-book p     "Автор: <name>"
//	#desc-tab p      description
//	.img-book img    cover
func parsePublicationPage(doc *html.Node, base *url.URL) (*Resolved, error) {
	res := &Resolved{}

	if h := hq.Within(doc, hq.Class("desc-book"), hq.Tag("h1")); h != nil {
		res.Name = strings.TrimSpace(hq.Text(h))
	}
	if res.Name == "" {
		return nil, fmt.Errorf("%w: publication title (.desc-book h1) not found", ErrMetadataShape)
	}

	if p := hq.Within(doc, hq.ID("info-book"), hq.Tag("p")); p != nil {
		res.Author = authorName(hq.Text(p))
	}
	if p := hq.Within(doc, hq.ID("desc-tab"), hq.Tag("p")); p != nil {
		res.Description = strings.TrimSpace(hq.Text(p))
	}
	if img := hq.Within(doc, hq.Class("img-book"), hq.Tag("img")); img != nil {
		res.CoverURL = absolute(base, hq.Attr(img, "src"))
	}

	// nested .title elements reach the same anchor more than once
	seen := map[*html.Node]bool{}
	for _, scope := range hq.FindAll(doc, hq.Class("title")) {
		for _, a := range hq.FindAll(scope, hq.Tag("a")) {
			href := hq.Attr(a, "href")
			if href == "" || seen[a] {
				continue
			}
			seen[a] = true
			res.URLs = append(res.URLs, absolute(base, href))
			res.Titles = append(res.Titles, strings.TrimSpace(hq.Text(a)))
		}
	}
	slices.Reverse(res.URLs)
	slices.Reverse(res.Titles)

	return res, nil
}

// authorName drops the "Автор:" label in front of the author's name.
func authorName(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

func absolute(base *url.URL, ref string) string {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil || base == nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
