// Package content serves the legal policy pages as static structured text.
package content

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var ErrPolicyNotFound = errors.New("content: policy not found")

// Section is a heading followed by plain-text paragraphs. Bodies are never
// interpreted as markup.
type Section struct {
	Heading    string   `yaml:"heading" json:"heading"`
	Paragraphs []string `yaml:"paragraphs" json:"paragraphs"`
}

type Policy struct {
	Slug     string    `yaml:"slug" json:"slug"`
	Title    string    `yaml:"title" json:"title"`
	Updated  string    `yaml:"updated" json:"updated,omitempty"`
	Sections []Section `yaml:"sections" json:"sections"`
}

type document struct {
	Policies []Policy `yaml:"policies"`
}

// PolicyStore holds policies keyed by slug.
type PolicyStore struct {
	mu       sync.RWMutex
	path     string
	policies map[string]Policy
}

// LoadPolicies reads the YAML file at path.
func LoadPolicies(path string) (*PolicyStore, error) {
	s := &PolicyStore{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the file. The old content stays on error.
func (s *PolicyStore) Reload() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read policies: %w", err)
	}
	policies, err := parsePolicies(raw)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.policies = policies
	s.mu.Unlock()
	return nil
}

func parsePolicies(raw []byte) (map[string]Policy, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse policies: %w", err)
	}

	out := make(map[string]Policy, len(doc.Policies))
	for i, p := range doc.Policies {
		p.Slug = strings.TrimSpace(p.Slug)
		if p.Slug == "" || p.Title == "" {
			return nil, fmt.Errorf("policy %d: slug and title are required", i)
		}
		if _, dup := out[p.Slug]; dup {
			return nil, fmt.Errorf("duplicate policy slug %q", p.Slug)
		}
		out[p.Slug] = p
	}
	return out, nil
}

func (s *PolicyStore) Get(slug string) (Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[slug]
	if !ok {
		return Policy{}, ErrPolicyNotFound
	}
	return p, nil
}

// Slugs lists available policies, sorted.
func (s *PolicyStore) Slugs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slugs := make([]string, 0, len(s.policies))
	for slug := range s.policies {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}
