package trie

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/typeahead/engine/internal/engineerr"
)

func TestLookupPrefixInvariant(t *testing.T) {
	tr := New(10)
	now := time.Now()
	for _, p := range []string{"apple", "application", "apply", "apricot", "banana"} {
		tr.Insert(p, 10, now)
	}
	for _, s := range tr.Lookup("ap") {
		if !strings.HasPrefix(s.Phrase, "ap") {
			t.Errorf("I-PREFIX violated: %q does not start with prefix", s.Phrase)
		}
	}
}

func TestTopKInvariant(t *testing.T) {
	tr := New(2)
	now := time.Now()
	tr.Insert("apple", 100, now)
	tr.Insert("application", 80, now)
	tr.Insert("apply", 60, now)

	got := tr.Lookup("ap")
	if len(got) != 2 {
		t.Fatalf("expected top-2 capped list, got %d", len(got))
	}
	if got[0].Phrase != "apple" || got[1].Phrase != "application" {
		t.Errorf("expected highest-count entries retained, got %+v", got)
	}
}

func TestCaseNormalization(t *testing.T) {
	tr := New(10)
	now := time.Now()
	tr.Insert("Apple", 10, now)

	a := tr.Lookup("ap")
	b := tr.Lookup("AP")
	if len(a) != len(b) || len(a) == 0 {
		t.Fatalf("expected equivalent results for differently-cased prefixes")
	}
	if a[0].Phrase != b[0].Phrase {
		t.Errorf("lookup(p) and lookup(p.lower()) diverged: %+v vs %+v", a, b)
	}
}

func TestLookupNoMatch(t *testing.T) {
	tr := New(10)
	tr.Insert("apple", 10, time.Now())
	got := tr.Lookup("z")
	if len(got) != 0 {
		t.Errorf("expected empty sequence for unmatched prefix, got %+v", got)
	}
}

func TestLookupEmptyPrefix(t *testing.T) {
	tr := New(10)
	tr.Insert("apple", 10, time.Now())
	got := tr.Lookup("")
	if len(got) != 0 {
		t.Errorf("expected empty sequence for empty prefix, got %+v", got)
	}
}

func TestRebuildDeterminism(t *testing.T) {
	now := time.Now()
	entries := []Entry{
		{Phrase: "apple", Count: 100, LastUpdated: now},
		{Phrase: "application", Count: 80, LastUpdated: now},
		{Phrase: "apply", Count: 60, LastUpdated: now},
		{Phrase: "apricot", Count: 40, LastUpdated: now},
		{Phrase: "banana", Count: 50, LastUpdated: now},
	}
	t1 := RebuildFrom(entries, 10)
	t2 := RebuildFrom(entries, 10)

	a := t1.Lookup("ap")
	b := t2.Lookup("ap")
	if len(a) != len(b) {
		t.Fatalf("non-deterministic rebuild: lengths differ")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("non-deterministic rebuild at index %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestScenarioS1SimpleTopK(t *testing.T) {
	now := time.Now()
	entries := []Entry{
		{Phrase: "apple", Count: 100, LastUpdated: now},
		{Phrase: "application", Count: 80, LastUpdated: now},
		{Phrase: "apply", Count: 60, LastUpdated: now},
		{Phrase: "apricot", Count: 40, LastUpdated: now},
		{Phrase: "banana", Count: 50, LastUpdated: now},
	}
	tr := RebuildFrom(entries, 10)

	ap := tr.Lookup("ap")
	wantAP := []string{"apple", "application", "apply", "apricot"}
	if len(ap) != len(wantAP) {
		t.Fatalf("lookup(ap) length = %d, want %d", len(ap), len(wantAP))
	}
	for i, w := range wantAP {
		if ap[i].Phrase != w {
			t.Errorf("lookup(ap)[%d] = %q, want %q", i, ap[i].Phrase, w)
		}
	}

	b := tr.Lookup("b")
	if len(b) != 1 || b[0].Phrase != "banana" {
		t.Errorf("lookup(b) = %+v, want [banana]", b)
	}

	z := tr.Lookup("z")
	if len(z) != 0 {
		t.Errorf("lookup(z) = %+v, want []", z)
	}
}

func TestScenarioS2DeltaApply(t *testing.T) {
	now := time.Now()
	entries := []Entry{
		{Phrase: "apple", Count: 100, LastUpdated: now},
		{Phrase: "application", Count: 80, LastUpdated: now},
		{Phrase: "apply", Count: 60, LastUpdated: now},
		{Phrase: "apricot", Count: 40, LastUpdated: now},
		{Phrase: "banana", Count: 50, LastUpdated: now},
	}
	tr := RebuildFrom(entries, 10)
	tr.ApplyDelta("apply", 50, now)

	ap := tr.Lookup("ap")
	want := []string{"apply", "apple", "application", "apricot"}
	if len(ap) != len(want) {
		t.Fatalf("lookup(ap) length = %d, want %d", len(ap), len(want))
	}
	for i, w := range want {
		if ap[i].Phrase != w {
			t.Errorf("lookup(ap)[%d] = %q, want %q", i, ap[i].Phrase, w)
		}
	}
	if ap[0].Count != 110 {
		t.Errorf("expected apply count = 110, got %d", ap[0].Count)
	}
}

func TestApplyDeltaZeroNoop(t *testing.T) {
	tr := New(10)
	now := time.Now()
	tr.Insert("apple", 10, now)
	if err := tr.ApplyDelta("apple", 0, now); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	got := tr.Lookup("apple")
	if len(got) != 1 || got[0].Count != 10 {
		t.Errorf("zero delta should be a no-op, got %+v", got)
	}
}

func TestApplyDeltaFloorsAtZero(t *testing.T) {
	tr := New(10)
	now := time.Now()
	tr.Insert("apple", 5, now)

	if err := tr.ApplyDelta("apple", -100, now); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	got := tr.Lookup("apple")
	if len(got) != 1 || got[0].Count != 0 {
		t.Errorf("expected count floored at 0, got %+v", got)
	}
}

func TestApplyDeltaFloorsAtZeroForAbsentPhrase(t *testing.T) {
	tr := New(10)
	now := time.Now()

	if err := tr.ApplyDelta("ghost", -50, now); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	got := tr.Lookup("ghost")
	if len(got) != 1 || got[0].Count != 0 {
		t.Errorf("expected a never-seen phrase driven negative to floor at 0, got %+v", got)
	}
}

func TestApplyDeltaReturnsErrTransientUnderLockContention(t *testing.T) {
	tr := New(10)
	now := time.Now()
	tr.Insert("apple", 10, now)

	tr.mu.Lock()
	err := tr.ApplyDelta("apple", 5, now)
	tr.mu.Unlock()

	if !errors.Is(err, engineerr.ErrTransient) {
		t.Fatalf("expected ErrTransient while write lock is held, got %v", err)
	}
}

func TestLookupDuringConcurrentApplyDeltaNeverRaces(t *testing.T) {
	tr := New(10)
	now := time.Now()
	for _, p := range []string{"apple", "application", "apply"} {
		tr.Insert(p, 10, now)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					tr.Lookup("ap")
				}
			}
		}()
	}

	for i := 0; i < 2000; i++ {
		for {
			if err := tr.ApplyDelta("apple", 1, now); err == nil {
				break
			}
		}
	}
	close(stop)
	wg.Wait()

	got := tr.Lookup("apple")
	if len(got) != 1 || got[0].Count != 2010 {
		t.Errorf("expected apple count 2010 after 2000 concurrent-safe deltas, got %+v", got)
	}
}

func TestExactPrefixMatch(t *testing.T) {
	var m ExactPrefixMatch
	if !m.Matches("ap", "apple") {
		t.Errorf("expected match")
	}
	if m.Matches("ap", "banana") {
		t.Errorf("expected no match")
	}
}

func TestFuzzyPrefixMatchUnimplemented(t *testing.T) {
	var m FuzzyPrefixMatch
	if m.Matches("ap", "apple") {
		t.Errorf("fuzzy match hook should not match anything yet")
	}
}
