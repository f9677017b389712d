// Package manifest assembles, hashes and validates brief manifests.
package manifest

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"newsbrief/internal/core"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaVersion is written into every manifest.
const SchemaVersion = "1.0.0"

// SchemaURL identifies the embedded schema.
const SchemaURL = "https://newsbrief.dev/schemas/brief_manifest.schema.json"

// DateLayout is the layout of BriefManifest.Date.
const DateLayout = "2006-01-02"

//go:embed schemas/brief_manifest.schema.json
var schemaJSON []byte

// buildNamespace scopes build ids.
var buildNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://newsbrief.dev/build"))

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// SchemaJSON returns the embedded JSON Schema document.
func SchemaJSON() []byte {
	return bytes.Clone(schemaJSON)
}

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		c.AssertFormat = true
		if err := c.AddResource(SchemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("failed to load manifest schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile(SchemaURL)
	})
	return schema, schemaErr
}

// Assembler builds manifests from ranked items.
type Assembler struct {
	now func() time.Time
}

// Option customizes an Assembler.
type Option func(*Assembler)

// WithClock sets the source of generated_at.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAssembler creates an Assembler using the wall clock by default.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Assemble builds, hashes and validates the manifest for topic and date
// (YYYY-MM-DD). Items keep their given order. A schema violation is returned
// as *core.SchemaValidationError.
func (a *Assembler) Assemble(topic, date string, items []core.ScoredItem) (*core.BriefManifest, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date %q: %v", core.ErrInvalidRequest, date, err)
	}

	m := &core.BriefManifest{
		SchemaVersion: SchemaVersion,
		Topic:         topic,
		Date:          date,
		GeneratedAt:   a.now().UTC().Truncate(time.Second),
		ItemCount:     len(items),
		Items:         make([]core.ManifestItem, len(items)),
	}
	for i, it := range items {
		m.Items[i] = toManifestItem(it)
	}

	hash, err := ContentHash(m.Items)
	if err != nil {
		return nil, err
	}
	m.ContentHash = hash
	m.BuildID = BuildID(topic, date, hash)

	if err := Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

func toManifestItem(it core.ScoredItem) core.ManifestItem {
	rep := it.Article()
	alternates := it.Cluster.AlternateSources
	if alternates == nil {
		alternates = []string{}
	}
	matched := it.MatchedTopics
	if matched == nil {
		matched = []string{}
	}
	status := it.SummaryStatus
	if status == "" {
		status = core.SummarySkipped
	}
	var summary *string
	if status == core.SummaryOK && it.Summary != nil {
		s := *it.Summary
		summary = &s
	}
	return core.ManifestItem{
		ID:               rep.ID,
		Title:            rep.Title,
		URL:              rep.URL,
		Source:           rep.Source,
		AlternateSources: alternates,
		PublishedAt:      rep.PublishedAt.UTC(),
		Score:            it.Score,
		Rank:             it.Rank,
		MatchedTopics:    matched,
		Summary:          summary,
		SummaryStatus:    status,
	}
}

// ContentHash returns "sha256:" + hex digest of the canonical JSON encoding
// of items. generated_at and build_id never participate.
func ContentHash(items []core.ManifestItem) (string, error) {
	if items == nil {
		items = []core.ManifestItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest items: %w", err)
	}
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

// BuildID derives the build id from topic, date and content hash.
func BuildID(topic, date, contentHash string) string {
	return uuid.NewSHA1(buildNamespace, []byte(topic+"|"+date+"|"+contentHash)).String()
}

// VerifyHash reports whether the manifest's content hash matches its items.
func VerifyHash(m *core.BriefManifest) (bool, error) {
	hash, err := ContentHash(m.Items)
	if err != nil {
		return false, err
	}
	return hash == m.ContentHash, nil
}

// Validate checks a manifest against the schema and the cross-field rules
// the schema cannot express.
func Validate(m *core.BriefManifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return ValidateJSON(data)
}

// ValidateJSON validates a manifest document.
func ValidateJSON(data []byte) error {
	sch, err := compiled()
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return &core.SchemaValidationError{Violations: []string{"$: invalid JSON: " + err.Error()}, Err: err}
	}

	if err := sch.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &core.SchemaValidationError{Violations: violations(ve), Err: err}
		}
		return &core.SchemaValidationError{Err: err}
	}

	var m core.BriefManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return &core.SchemaValidationError{Violations: []string{"$: " + err.Error()}, Err: err}
	}
	if v := crossFieldViolations(&m); len(v) > 0 {
		return &core.SchemaValidationError{Violations: v, Err: errors.New("manifest is inconsistent")}
	}
	return nil
}

// Decode parses and validates a manifest, rejecting unknown major schema versions first.
func Decode(data []byte) (*core.BriefManifest, error) {
	var head struct {
		SchemaVersion string `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, &core.SchemaValidationError{Violations: []string{"$: invalid JSON: " + err.Error()}, Err: err}
	}
	if head.SchemaVersion != "" && !supported(head.SchemaVersion) {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedSchemaVersion, head.SchemaVersion)
	}

	if err := ValidateJSON(data); err != nil {
		return nil, err
	}

	var m core.BriefManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}

func supported(version string) bool {
	major, _, _ := strings.Cut(version, ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return false
	}
	want, _, _ := strings.Cut(SchemaVersion, ".")
	return strconv.Itoa(n) == want
}

func crossFieldViolations(m *core.BriefManifest) []string {
	var out []string
	if m.ItemCount != len(m.Items) {
		out = append(out, fmt.Sprintf("/item_count: %d does not match %d items", m.ItemCount, len(m.Items)))
	}
	for i, it := range m.Items {
		if it.Rank != i+1 {
			out = append(out, fmt.Sprintf("/items/%d/rank: expected %d, got %d", i, i+1, it.Rank))
		}
		if i > 0 && it.Score > m.Items[i-1].Score {
			out = append(out, fmt.Sprintf("/items/%d/score: ranked above a lower score", i))
		}
	}
	return out
}

// violations flattens a validation error tree into "location: message" lines.
func violations(ve *jsonschema.ValidationError) []string {
	var out []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out = append(out, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Strings(out)
	return out
}
