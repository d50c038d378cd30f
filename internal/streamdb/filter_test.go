package streamdb

import (
	"testing"

	"github.com/redbasin/basin/internal/stream"
)

func TestFilterDisabledMatchesEverything(t *testing.T) {
	f, err := NewFilter("   ")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !f.Eval(Entry{}) {
		t.Fatalf("empty filter should match")
	}
}

func TestFilterOnFields(t *testing.T) {
	f, err := NewFilter(`fields["level"] == "error" && ms > uint(100)`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	match := Entry{ID: stream.EntryID{MS: 200}, Fields: fieldsKV("level", "error")}
	if !f.Eval(match) {
		t.Fatalf("expected match")
	}

	noMatch := Entry{ID: stream.EntryID{MS: 200}, Fields: fieldsKV("level", "info")}
	if f.Eval(noMatch) {
		t.Fatalf("expected no match")
	}

	// missing key -> evaluation error -> no match
	missing := Entry{ID: stream.EntryID{MS: 200}, Fields: fieldsKV("other", "x")}
	if f.Eval(missing) {
		t.Fatalf("expected no match for missing key")
	}
}

func TestFilterCompileError(t *testing.T) {
	if _, err := NewFilter("this is not CEL ((("); err == nil {
		t.Fatalf("expected compile error")
	}
}
