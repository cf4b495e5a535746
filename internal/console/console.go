package console

import (
	"sort"
	"sync"
)

// Console holds the pages of one user session, created on first use.
type Console struct {
	deps Deps
	opts []Option

	mu    sync.Mutex
	pages map[string]*Page
}

// New returns a console whose pages share deps and opts.
func New(deps Deps, opts ...Option) *Console {
	return &Console{deps: deps, opts: opts, pages: make(map[string]*Page)}
}

// Page returns the page of kind, creating it on first use. Extra options
// apply only when the page is created.
func (c *Console) Page(kind string, extra ...Option) (*Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pages[kind]; ok {
		return p, nil
	}
	opts := append(append([]Option(nil), c.opts...), extra...)
	p, err := NewPage(kind, c.deps, opts...)
	if err != nil {
		return nil, err
	}
	c.pages[kind] = p
	return p, nil
}

// Lookup returns the page of kind if it was created.
func (c *Console) Lookup(kind string) (*Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pages[kind]
	return p, ok
}

// Pages returns the created pages in kind order.
func (c *Console) Pages() []*Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Page, 0, len(c.pages))
	for _, p := range c.pages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].kind < out[j].kind })
	return out
}

// Kinds lists every kind a page can be opened for.
func (c *Console) Kinds() []string {
	return c.deps.Catalog.Kinds()
}
