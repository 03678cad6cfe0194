package legacybench

import "testing"

func TestCompleterBasic(t *testing.T) {
	c := NewCompleter()
	c.AddPhrase("hello", 30)
	c.AddPhrase("help", 25)
	c.AddPhrase("helmet", 10)
	c.AddPhrase("hex", 21)

	got := c.Complete("he", 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions at or above the 2-char threshold of 24, got %d: %+v", len(got), got)
	}
	if got[0].Phrase != "hello" || got[0].Count != 30 {
		t.Errorf("expected hello first, got %+v", got[0])
	}
}

func TestCompleterShortPrefixThreshold(t *testing.T) {
	c := NewCompleter()
	c.AddPhrase("ab", 22)
	c.AddPhrase("abc", 22)

	got := c.Complete("a", 10)
	if len(got) != 0 {
		t.Errorf("short prefix should require count >= 24, got %+v", got)
	}
}

func TestCompleterLimit(t *testing.T) {
	c := NewCompleter()
	for i, p := range []string{"cat", "car", "can", "cap"} {
		c.AddPhrase(p, int64(30-i))
	}
	got := c.Complete("ca", 2)
	if len(got) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(got))
	}
	if got[0].Phrase != "cat" || got[1].Phrase != "car" {
		t.Errorf("expected ordering by count desc, got %+v", got)
	}
}

func TestCompleterStats(t *testing.T) {
	c := NewCompleter()
	c.AddPhrase("dog", 40)
	c.AddPhrase("door", 12)
	total, max := c.Stats()
	if total != 2 || max != 40 {
		t.Errorf("expected total=2 max=40, got total=%d max=%d", total, max)
	}
}

func TestCompleterTieBreak(t *testing.T) {
	c := NewCompleter()
	c.AddPhrase("bat", 25)
	c.AddPhrase("bar", 25)
	got := c.Complete("ba", 10)
	if len(got) != 2 || got[0].Phrase != "bar" || got[1].Phrase != "bat" {
		t.Errorf("expected alphabetical tie-break, got %+v", got)
	}
}
