package sources

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// TopicConfig expands a topic name into extra keywords.
type TopicConfig struct {
	Keywords []string `yaml:"keywords"`
}

// File is the sources file: the sources to fetch and the known topics.
type File struct {
	Sources []SourceConfig         `yaml:"sources"`
	Topics  map[string]TopicConfig `yaml:"topics"`
}

// LoadFile reads and validates a sources file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile decodes a sources file. Source names must be unique.
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	seen := make(map[string]bool, len(f.Sources))
	for i, s := range f.Sources {
		if s.Name == "" {
			return nil, fmt.Errorf("sources[%d]: name is required", i)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("sources[%d]: duplicate source name %q", i, s.Name)
		}
		seen[s.Name] = true
	}
	return &f, nil
}

// Keywords returns the configured keywords of a topic, matched case-insensitively.
func (f *File) Keywords(topic string) []string {
	if f == nil {
		return nil
	}
	for name, tc := range f.Topics {
		if strings.EqualFold(name, topic) {
			return tc.Keywords
		}
	}
	return nil
}

// TopicNames returns the configured topic names, sorted.
func (f *File) TopicNames() []string {
	names := make([]string, 0, len(f.Topics))
	for name := range f.Topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
