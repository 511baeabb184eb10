package routes

import (
	"sort"

	"github.com/niels/page-server/pkg/config"
)

// Table is the static route configuration. It is built once at startup and
// only read afterwards, so it is safe to share between requests.
type Table struct {
	// HomeLocation is where GET / redirects to
	HomeLocation string
	// Pages maps a logical route ("/home") to a file identifier ("home/index.html")
	Pages map[string]string
	// ContentTypes maps an extension including the dot to a MIME type
	ContentTypes map[string]string
}

// NewTable builds a route table from the configuration. The maps are copied
// so later changes to cfg do not leak into a running router.
func NewTable(cfg *config.Config) Table {
	pages := make(map[string]string, len(cfg.Pages))
	for route, file := range cfg.Pages {
		pages[route] = file
	}

	types := make(map[string]string, len(cfg.ContentTypes))
	for ext, mime := range cfg.ContentTypes {
		types[ext] = mime
	}

	return Table{
		HomeLocation: cfg.Location.Home,
		Pages:        pages,
		ContentTypes: types,
	}
}

// Entry describes one configured route for display
type Entry struct {
	Method string
	Path   string
	Target string
	Kind   string
}

// Entries lists the redirect followed by the logical pages sorted by path
func (t Table) Entries() []Entry {
	entries := []Entry{{Method: "GET", Path: "/", Target: t.HomeLocation, Kind: "redirect"}}

	routes := make([]string, 0, len(t.Pages))
	for route := range t.Pages {
		routes = append(routes, route)
	}
	sort.Strings(routes)

	for _, route := range routes {
		entries = append(entries, Entry{Method: "GET", Path: route, Target: t.Pages[route], Kind: "page"})
	}

	return append(entries, Entry{Method: "GET", Path: "/*", Target: "literal path", Kind: "file"})
}
