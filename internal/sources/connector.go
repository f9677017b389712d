// Package sources fetches raw items from configured news sources.
package sources

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"newsbrief/internal/core"
	"newsbrief/internal/httpclient"

	"github.com/rs/zerolog"
)

// Connector fetches raw items from one source.
type Connector interface {
	Name() string
	Fetch(ctx context.Context) ([]core.RawItem, error)
}

// Getter is the HTTP capability connectors need.
type Getter interface {
	Get(ctx context.Context, url string) (*httpclient.Response, error)
}

// SourceConfig is one entry of the sources file.
type SourceConfig struct {
	Name      string            `yaml:"name"`
	Kind      string            `yaml:"kind"`
	URL       string            `yaml:"url"`
	Topics    []string          `yaml:"topics"`
	Timeout   time.Duration     `yaml:"timeout"`
	MaxItems  int               `yaml:"max_items"`
	Disabled  bool              `yaml:"disabled"`
	Items     string            `yaml:"items"`     // json: path selecting the record list
	Fields    map[string]string `yaml:"fields"`    // json: field name to path within a record
	Selectors HTMLSelectors     `yaml:"selectors"` // html
}

// HTMLSelectors locate item fields in a scraped page. A value of the form
// "selector@attr" reads an attribute instead of the text; "@attr" reads it
// from the item element itself.
type HTMLSelectors struct {
	Item      string `yaml:"item"`
	Title     string `yaml:"title"`
	Link      string `yaml:"link"`
	Published string `yaml:"published"`
	Body      string `yaml:"body"`
	Topics    string `yaml:"topics"`
}

// Deps are the shared collaborators handed to every factory.
type Deps struct {
	HTTP     Getter
	Log      zerolog.Logger
	Now      func() time.Time
	MaxItems int // default per-source cap when the source sets none
}

// Factory builds a connector for one configured source.
type Factory func(cfg SourceConfig, deps Deps) (Connector, error)

// Registry maps source kinds to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	deps      Deps
}

// NewRegistry builds a registry with the built-in rss, json and html kinds.
func NewRegistry(deps Deps) *Registry {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	r := &Registry{factories: map[string]Factory{}, deps: deps}
	r.Register(KindRSS, NewRSSConnector)
	r.Register(KindJSON, NewJSONConnector)
	r.Register(KindHTML, NewHTMLConnector)
	return r
}

// Register adds or replaces the factory for a kind.
func (r *Registry) Register(kind string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(kind)] = f
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build resolves a configured source into a connector.
func (r *Registry) Build(cfg SourceConfig) (Connector, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("source with url %q has no name", cfg.URL)
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("source %s has no url", cfg.Name)
	}
	kind := strings.ToLower(cfg.Kind)
	if kind == "" {
		kind = KindRSS
	}

	r.mu.RLock()
	f, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("source %s: kind %q is not registered", cfg.Name, cfg.Kind)
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = r.deps.MaxItems
	}
	return f(cfg, r.deps)
}

// BuildAll builds every enabled source, in file order.
func (r *Registry) BuildAll(cfgs []SourceConfig) ([]Connector, error) {
	var out []Connector
	for _, cfg := range cfgs {
		if cfg.Disabled {
			continue
		}
		c, err := r.Build(cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// load reads a source document over HTTP, or from disk for file:// URLs and plain paths.
func load(ctx context.Context, client Getter, source, target string) ([]byte, error) {
	u, err := url.Parse(target)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		if client == nil {
			return nil, &core.ConnectorError{Source: source, Kind: core.ConnectorUnreachable, Err: errors.New("no http client configured")}
		}
		resp, err := client.Get(ctx, target)
		if err != nil {
			return nil, &core.ConnectorError{Source: source, Kind: classify(err), Err: err}
		}
		return resp.Body, nil
	}

	path := target
	if err == nil && u.Scheme == "file" {
		path = u.Path
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.ConnectorError{Source: source, Kind: core.ConnectorUnreachable, Err: err}
	}
	return body, nil
}

// classify maps a transport error to a connector error kind.
func classify(err error) core.ConnectorErrorKind {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return core.ConnectorTimeout
	case errors.Is(err, httpclient.ErrUnauthorized), errors.Is(err, httpclient.ErrDisallowed):
		return core.ConnectorAuthFailure
	case errors.As(err, &netErr) && netErr.Timeout():
		return core.ConnectorTimeout
	default:
		return core.ConnectorUnreachable
	}
}

func malformed(source string, err error) error {
	return &core.ConnectorError{Source: source, Kind: core.ConnectorMalformed, Err: err}
}

func limit[T any](items []T, max int) []T {
	if max > 0 && len(items) > max {
		return items[:max]
	}
	return items
}
