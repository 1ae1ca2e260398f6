// Package enrich turns raw detector labels into flashcard display bundles:
// translation, category pair, and an optional pronunciation hint.
package enrich

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"lexilens/internal/domain"
)

//go:embed data/translations.yaml data/categories.yaml data/pronunciations.yaml
var dataFS embed.FS

var fallbackCategories = [2]string{"Unknown", "Other"}

// Service performs pure dictionary lookups over embedded per-language
// tables. Lookup misses fall back to deterministic defaults, never errors.
type Service struct {
	translations   map[string]map[string]string
	categories     map[string][]string
	pronunciations map[string]map[string]string

	mu    sync.RWMutex
	cache map[string]string
}

// NewService parses the embedded dictionaries.
func NewService() (*Service, error) {
	s := &Service{cache: make(map[string]string)}

	if err := loadYAML("data/translations.yaml", &s.translations); err != nil {
		return nil, err
	}
	if err := loadYAML("data/categories.yaml", &s.categories); err != nil {
		return nil, err
	}
	if err := loadYAML("data/pronunciations.yaml", &s.pronunciations); err != nil {
		return nil, err
	}

	return s, nil
}

// Enrich resolves the display bundle for a label in the target language.
func (s *Service) Enrich(label string, languageCode string) domain.Enrichment {
	return domain.Enrichment{
		Translation:   s.Translate(label, languageCode),
		Categories:    s.Categories(label),
		Pronunciation: s.Pronounce(label, languageCode),
	}
}

// Translate looks the label up case-insensitively. On a dictionary miss the
// label itself is returned with a language marker appended; the result is
// cached for the process lifetime either way.
func (s *Service) Translate(label string, languageCode string) string {
	normalized := strings.ToLower(label)
	key := languageCode + "\x00" + normalized

	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return cached
	}

	translation, ok := s.translations[languageCode][normalized]
	if !ok {
		translation = label + " (" + languageCode + ")"
	}

	s.mu.Lock()
	s.cache[key] = translation
	s.mu.Unlock()
	return translation
}

// Categories returns the (primary, secondary) category pair for a label,
// or the fixed Unknown/Other pair on a miss.
func (s *Service) Categories(label string) [2]string {
	cats, ok := s.categories[strings.ToLower(label)]
	if !ok || len(cats) < 2 {
		return fallbackCategories
	}
	return [2]string{cats[0], cats[1]}
}

// Pronounce returns the pronunciation hint for (label, language), or the
// empty string when no entry exists. Hints are never synthesized.
func (s *Service) Pronounce(label string, languageCode string) string {
	return s.pronunciations[languageCode][strings.ToLower(label)]
}

func loadYAML(name string, out any) error {
	raw, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}
