package pagination

import (
	"fmt"
	"strings"
)

// Config controls how page links are generated
type Config struct {
	BaseURL  string // links are BaseURL/{page}
	PerPage  int
	NumLinks int // digit links shown on each side of the current page
}

// Link is a single pagination anchor
type Link struct {
	Label   string
	Page    int
	URL     string
	Current bool
}

// Links is the computed link set for one page of results
type Links struct {
	TotalRows  int
	TotalPages int
	Current    int
	First      *Link
	Prev       *Link
	Pages      []Link
	Next       *Link
	Last       *Link
}

// Empty reports whether there is nothing to paginate (zero or one page).
func (l Links) Empty() bool {
	return l.TotalPages <= 1
}

// Build computes the link set for totalRows rows with current as the requested page.
// A current page beyond the last page is clamped to the last page.
func Build(cfg Config, totalRows, current int) Links {
	links := Links{TotalRows: totalRows, Current: 1}
	if totalRows <= 0 || cfg.PerPage <= 0 {
		return links
	}

	links.TotalPages = (totalRows + cfg.PerPage - 1) / cfg.PerPage
	if current < 1 {
		current = 1
	}
	if current > links.TotalPages {
		current = links.TotalPages
	}
	links.Current = current

	if links.TotalPages == 1 {
		return links
	}

	numLinks := cfg.NumLinks
	if numLinks < 1 {
		numLinks = 1
	}

	start := max(1, current-numLinks)
	end := min(links.TotalPages, current+numLinks)

	if current > numLinks+1 {
		links.First = &Link{Label: "First", Page: 1, URL: cfg.url(1)}
	}
	if current > 1 {
		links.Prev = &Link{Label: "<", Page: current - 1, URL: cfg.url(current - 1)}
	}

	links.Pages = make([]Link, 0, end-start+1)
	for n := start; n <= end; n++ {
		links.Pages = append(links.Pages, Link{
			Label:   fmt.Sprint(n),
			Page:    n,
			URL:     cfg.url(n),
			Current: n == current,
		})
	}

	if current < links.TotalPages {
		links.Next = &Link{Label: ">", Page: current + 1, URL: cfg.url(current + 1)}
	}
	if current+numLinks < links.TotalPages {
		links.Last = &Link{Label: "Last", Page: links.TotalPages, URL: cfg.url(links.TotalPages)}
	}

	return links
}

func (c Config) url(page int) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + fmt.Sprint(page)
}
