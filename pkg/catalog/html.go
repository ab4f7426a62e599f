package catalog

import (
	"bytes"
	"context"
	"path"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/cperrin88/coupler-launcher/internal/logger"
	"github.com/cperrin88/coupler-launcher/pkg/errors"
)

// HTMLListing reads a directory listing rendered as an HTML table. Every body row
// holds the file link, its modification date and its MD5 checksum in that order.
type HTMLListing struct {
	Fetcher DocumentFetcher
}

// NewHTMLListing creates a listing source.
func NewHTMLListing(fetcher DocumentFetcher) *HTMLListing {
	return &HTMLListing{Fetcher: fetcher}
}

// Entries implements Source.
func (l *HTMLListing) Entries(ctx context.Context, indexURL string) ([]Entry, error) {
	doc, err := fetchDocument(ctx, l.Fetcher, indexURL)
	if err != nil {
		return nil, err
	}
	return ParseListing(doc), nil
}

// ParseListing extracts entries from every "table tbody tr" row of doc.
func ParseListing(doc *html.Node) []Entry {
	var entries []Entry
	for _, table := range findAll(doc, atom.Table) {
		for _, tbody := range children(table, atom.Tbody) {
			for _, tr := range children(tbody, atom.Tr) {
				if e, ok := parseRow(tr); ok {
					entries = append(entries, e)
				}
			}
		}
	}
	return entries
}

func parseRow(tr *html.Node) (Entry, bool) {
	tds := children(tr, atom.Td)
	if len(tds) == 0 {
		return Entry{}, false
	}
	links := findAll(tds[0], atom.A)
	if len(links) == 0 {
		logger.Debug("Skipping listing row without link", logger.Fields{"text": textContent(tr)})
		return Entry{}, false
	}
	link := links[0]

	e := Entry{
		Filename: textContent(link),
		Href:     attr(link, "href"),
	}
	if e.Filename == "" {
		e.Filename = path.Base(e.Href)
	}
	if len(tds) > 1 {
		e.Marker = textContent(tds[1])
	}
	if len(tds) > 2 {
		e.Checksum = textContent(tds[2])
	}
	return e, true
}

// HTMLPage reads a download page. Every link whose filename matches Pattern becomes
// an entry. The data-date (or data-version) and data-md5 attributes of the link supply
// the marker and the checksum.
type HTMLPage struct {
	Fetcher DocumentFetcher
	Pattern *regexp.Regexp
}

// NewHTMLPage creates a page source. An empty pattern selects DefaultBuildPattern.
func NewHTMLPage(fetcher DocumentFetcher, pattern string) (*HTMLPage, error) {
	if pattern == "" {
		pattern = DefaultBuildPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid build pattern %q", pattern)
	}
	return &HTMLPage{Fetcher: fetcher, Pattern: re}, nil
}

// Entries implements Source.
func (p *HTMLPage) Entries(ctx context.Context, indexURL string) ([]Entry, error) {
	doc, err := fetchDocument(ctx, p.Fetcher, indexURL)
	if err != nil {
		return nil, err
	}
	return p.Parse(doc), nil
}

// Parse extracts entries from the links of doc.
func (p *HTMLPage) Parse(doc *html.Node) []Entry {
	var entries []Entry
	for _, a := range findAll(doc, atom.A) {
		href := attr(a, "href")
		if href == "" {
			continue
		}
		filename := path.Base(strings.SplitN(strings.SplitN(href, "?", 2)[0], "#", 2)[0])
		if p.Pattern != nil && !p.Pattern.MatchString(filename) {
			continue
		}
		marker := attr(a, "data-date")
		if marker == "" {
			marker = attr(a, "data-version")
		}
		entries = append(entries, Entry{
			Filename: filename,
			Href:     href,
			Marker:   marker,
			Checksum: attr(a, "data-md5"),
		})
	}
	return entries
}

func fetchDocument(ctx context.Context, fetcher DocumentFetcher, indexURL string) (*html.Node, error) {
	data, err := fetcher.Fetch(ctx, indexURL)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &errors.CatalogUnreachableError{URL: indexURL, Err: err}
	}
	return doc, nil
}

func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == a {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func children(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			out = append(out, c)
		}
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
