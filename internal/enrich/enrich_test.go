package enrich

import (
	"testing"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService()
	if err != nil {
		t.Fatalf("failed to build enrichment service: %v", err)
	}
	return s
}

func TestEnrichKnownWord(t *testing.T) {
	t.Parallel()
	s := newTestService(t)

	got := s.Enrich("cup", "es")
	if got.Translation != "taza" {
		t.Fatalf("unexpected translation: %q", got.Translation)
	}
	if got.Categories != [2]string{"Kitchenware", "Dining"} {
		t.Fatalf("unexpected categories: %v", got.Categories)
	}
	if got.Pronunciation != "tah-sah" {
		t.Fatalf("unexpected pronunciation: %q", got.Pronunciation)
	}
}

func TestEnrichLookupIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	s := newTestService(t)

	if got := s.Translate("Chair", "fr"); got != "chaise" {
		t.Fatalf("unexpected translation: %q", got)
	}
	if got := s.Categories("DOG"); got != [2]string{"Animal", "Pet"} {
		t.Fatalf("unexpected categories: %v", got)
	}
}

func TestEnrichFallbackIsDeterministic(t *testing.T) {
	t.Parallel()
	s := newTestService(t)

	first := s.Enrich("zzzznotfound", "xx")
	second := s.Enrich("zzzznotfound", "xx")

	if first.Translation == "" {
		t.Fatalf("fallback translation must be non-empty")
	}
	if first.Translation != "zzzznotfound (xx)" {
		t.Fatalf("unexpected fallback translation: %q", first.Translation)
	}
	if first.Translation != second.Translation {
		t.Fatalf("fallback is not deterministic: %q vs %q", first.Translation, second.Translation)
	}
	if first.Categories != [2]string{"Unknown", "Other"} {
		t.Fatalf("unexpected fallback categories: %v", first.Categories)
	}
	if first.Pronunciation != "" {
		t.Fatalf("pronunciation must never be synthesized, got %q", first.Pronunciation)
	}
}

func TestTranslateCacheKeysAvoidCrossLanguageCollisions(t *testing.T) {
	t.Parallel()
	s := newTestService(t)

	es := s.Translate("dog", "es")
	fr := s.Translate("dog", "fr")

	if es != "perro" || fr != "chien" {
		t.Fatalf("cross-language collision: es=%q fr=%q", es, fr)
	}

	// Repeat lookups come from the cache and must stay stable.
	if again := s.Translate("dog", "es"); again != "perro" {
		t.Fatalf("cached translation changed: %q", again)
	}
}

func TestPronounceAbsentForUnknownLanguage(t *testing.T) {
	t.Parallel()
	s := newTestService(t)

	if got := s.Pronounce("chair", "hi"); got != "" {
		t.Fatalf("expected no pronunciation, got %q", got)
	}
}
