package cmd

import (
	"regexp"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func mustSnapshotID(t *testing.T) string {
	t.Helper()
	id, err := newSnapshotID()
	if err != nil {
		t.Fatalf("newSnapshotID: %v", err)
	}
	return id
}

func TestNewSnapshotIDIsULIDLike(t *testing.T) {
	id := mustSnapshotID(t)
	if len(id) != 26 {
		t.Fatalf("expected 26-char ULID, got %d (%q)", len(id), id)
	}
	re := regexp.MustCompile(`^[0-9A-HJKMNP-TV-Z]{26}$`)
	if !re.MatchString(id) {
		t.Fatalf("snapshot id not Crockford base32 ULID format: %q", id)
	}
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		t.Fatalf("ParseStrict(%q): %v", id, err)
	}
	if d := time.Since(ulid.Time(parsed.Time())); d < 0 || d > time.Minute {
		t.Errorf("timestamp: expected now, got %v ago", d)
	}
}

func TestNewSnapshotIDUniqueness(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		id := mustSnapshotID(t)
		if seen[id] {
			t.Fatalf("duplicate snapshot id generated: %q", id)
		}
		seen[id] = true
	}
}

func TestNewSnapshotIDSortability(t *testing.T) {
	a := mustSnapshotID(t)
	time.Sleep(2 * time.Millisecond)
	b := mustSnapshotID(t)
	if a >= b {
		t.Fatalf("expected increasing lexical order across time: a=%q b=%q", a, b)
	}
}

func TestNewSnapshotIDMonotonicWithinMillisecond(t *testing.T) {
	prev := mustSnapshotID(t)
	for i := 0; i < 5000; i++ {
		id := mustSnapshotID(t)
		if id <= prev {
			t.Fatalf("id %d not increasing: prev=%q id=%q", i, prev, id)
		}
		prev = id
	}
}

func TestNormalizeSnapshotLine(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"code FM08 FXERD01 --start 202001", "code FM08 FXERD01 --start 202001"},
		{"boj layer MD10 Q 1 --all-pages", "layer MD10 Q 1 --all-pages"},
		{"  metadata   CO  ", "metadata CO"},
	}
	for _, c := range cases {
		got, err := normalizeSnapshotLine(c.in)
		if err != nil {
			t.Errorf("normalizeSnapshotLine(%q): unexpected error %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("normalizeSnapshotLine(%q): expected %q, got %q", c.in, c.want, got)
		}
	}
}

func TestNormalizeSnapshotLineRejects(t *testing.T) {
	for _, in := range []string{"", "boj", "getDataCode FM08", "snapshot list", "snapshot run usd-jpy"} {
		if _, err := normalizeSnapshotLine(in); err == nil {
			t.Errorf("normalizeSnapshotLine(%q): expected error", in)
		}
	}
}

func TestSnapshotDB(t *testing.T) {
	cases := map[string]string{
		"code fm08 FXERD01":     "FM08",
		"layer MD10 Q 1":        "MD10",
		"metadata CO":           "CO",
		"metadata --lang en":    "-",
		"catalog dbs":           "-",
		"code":                  "-",
		"store series CO A B C": "-",
	}
	for line, want := range cases {
		if got := snapshotDB(line); got != want {
			t.Errorf("snapshotDB(%q): expected %q, got %q", line, want, got)
		}
	}
}
