package recipients

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSource(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recipients.csv")
	if err := os.WriteFile(path, []byte(lines), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func TestLoadDedupFirstSeenWins(t *testing.T) {
	path := writeSource(t, "a@x.com,Alice\na@x.com,Ignored\nb@x.com,Bob\n")

	got := Load(path)
	if len(got) != 2 {
		t.Fatalf("expected 2 recipients, got %d: %+v", len(got), got)
	}
	if got[0].Email != "a@x.com" || got[0].Name != "Alice" {
		t.Fatalf("first entry = %+v, want a@x.com/Alice", got[0])
	}
	if got[1].Email != "b@x.com" || got[1].Name != "Bob" {
		t.Fatalf("second entry = %+v, want b@x.com/Bob", got[1])
	}
}

func TestLoadSkipsHeaderAndJunk(t *testing.T) {
	path := writeSource(t, "email,name\n\nnot-an-email\nhr@corp.io,\nx@y.z,Zed\n")

	got := Load(path)
	if len(got) != 2 {
		t.Fatalf("expected 2 recipients, got %d: %+v", len(got), got)
	}
	if got[0].Email != "hr@corp.io" || got[0].Name != "" {
		t.Fatalf("first entry = %+v", got[0])
	}
	if got[1].Email != "x@y.z" || got[1].Name != "Zed" {
		t.Fatalf("second entry = %+v", got[1])
	}
}

func TestLoadNormalizesCase(t *testing.T) {
	path := writeSource(t, "HR@Corp.IO,Team\nhr@corp.io,Dup\n")

	got := Load(path)
	if len(got) != 1 {
		t.Fatalf("expected 1 recipient, got %d: %+v", len(got), got)
	}
	if got[0].Email != "hr@corp.io" || got[0].Name != "Team" {
		t.Fatalf("entry = %+v", got[0])
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	got := Load(filepath.Join(t.TempDir(), "nope.csv"))
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %+v", got)
	}
}

func TestLoadIsPure(t *testing.T) {
	path := writeSource(t, "a@x.com,Alice\n")
	first := Load(path)
	second := Load(path)
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected 1 recipient per call, got %d then %d", len(first), len(second))
	}
	first[0].Name = "mutated"
	if second[0].Name != "Alice" {
		t.Fatalf("snapshots must be independent, got %+v", second[0])
	}
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"a@x.com", true},
		{"  A@X.COM  ", true},
		{"name", false},
		{"a@x", false},
		{"@x.com", false},
		{"a b@x.com", false},
	}
	for _, tt := range tests {
		if got := ValidEmail(tt.in); got != tt.want {
			t.Fatalf("ValidEmail(%q) = %t, want %t", tt.in, got, tt.want)
		}
	}
}

func TestEmailSet(t *testing.T) {
	set := EmailSet([]Recipient{{Email: "a@x.com"}, {Email: "b@x.com"}})
	if len(set) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(set))
	}
	if _, ok := set["a@x.com"]; !ok {
		t.Fatal("missing a@x.com")
	}
}
