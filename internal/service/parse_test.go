package service

import (
	"testing"
)

func TestParseProfileStrictJSON(t *testing.T) {
	raw := `{"name": "Ada Lovelace", "person_id": 42, "skills": ["mathematics"]}`

	p := ParseProfile(42, raw)
	if p == nil {
		t.Fatal("expected profile")
	}
	if p.ParseStrategy != 1 {
		t.Errorf("strategy = %d, want 1", p.ParseStrategy)
	}
	if p.EntityID != 42 {
		t.Errorf("entity id = %d, want 42", p.EntityID)
	}
	if p.Name() != "Ada Lovelace" {
		t.Errorf("name = %q", p.Name())
	}
}

func TestParseProfileArrayTakesFirstObject(t *testing.T) {
	raw := `[{"name": "First"}, {"name": "Second"}]`

	p := ParseProfile(1, raw)
	if p == nil {
		t.Fatal("expected profile")
	}
	if p.Name() != "First" {
		t.Errorf("name = %q, want First", p.Name())
	}
}

func TestParseProfileDriverArtifacts(t *testing.T) {
	// HTML-escaped quotes, a constructor rendering, bare nan, and
	// Python literals all in one response.
	raw := `{&quot;name&quot;: &quot;Grace Hopper&quot;, ` +
		`&quot;joined&quot;: neo4j.time.DateTime(2025, 10, 9, 12, 8, 29), ` +
		`&quot;score&quot;: nan, &quot;active&quot;: True, &quot;left&quot;: None}`

	p := ParseProfile(7, raw)
	if p == nil {
		t.Fatal("expected profile")
	}
	if p.ParseStrategy == 1 {
		t.Error("escaped input must not parse strictly")
	}
	if p.Name() != "Grace Hopper" {
		t.Errorf("name = %q", p.Name())
	}
	if p.Fields["joined"] != nil {
		t.Errorf("constructor rendering must map to null, got %v", p.Fields["joined"])
	}
	if p.Fields["score"] != nil {
		t.Errorf("nan must map to null, got %v", p.Fields["score"])
	}
	if p.Fields["active"] != true {
		t.Errorf("True must map to true, got %v", p.Fields["active"])
	}
	if p.Fields["left"] != nil {
		t.Errorf("None must map to null, got %v", p.Fields["left"])
	}
}

func TestParseProfileSingleQuoted(t *testing.T) {
	raw := `{'name': 'Alan Turing', 'title': 'Computer Scientist', 'bio': 'Turing\'s work'}`

	p := ParseProfile(3, raw)
	if p == nil {
		t.Fatal("expected profile")
	}
	if p.ParseStrategy != 2 {
		t.Errorf("strategy = %d, want 2", p.ParseStrategy)
	}
	if p.Name() != "Alan Turing" {
		t.Errorf("name = %q", p.Name())
	}
	if got := p.Fields["bio"]; got != "Turing's work" {
		t.Errorf("escaped quote mishandled: %v", got)
	}
}

func TestParseProfileEmbeddedDoubleQuotes(t *testing.T) {
	// Double quotes inside a single-quoted value must survive the
	// quote conversion; the blunt strategy-3 rewrite would break them.
	raw := `{'name': 'Dennis', 'note': 'called "the father of C"'}`

	p := ParseProfile(4, raw)
	if p == nil {
		t.Fatal("expected profile")
	}
	if p.ParseStrategy != 2 {
		t.Errorf("strategy = %d, want 2", p.ParseStrategy)
	}
	if got := p.Fields["note"]; got != `called "the father of C"` {
		t.Errorf("note = %v", got)
	}
}

func TestParseStrategyOrder(t *testing.T) {
	// First success wins: valid JSON never reaches the lenient passes,
	// single-quoted text is recovered by a lenient pass.
	if _, strategy := parseFields(`{"a": 1}`); strategy != 1 {
		t.Errorf("strict JSON parsed by strategy %d, want 1", strategy)
	}
	if fields, strategy := parseFields(`{'a': 1}`); fields == nil || strategy < 2 {
		t.Errorf("single-quoted text parsed by strategy %d, want a lenient pass", strategy)
	}
	if fields, strategy := parseFields("garbage"); fields != nil || strategy != 0 {
		t.Errorf("garbage parsed by strategy %d", strategy)
	}
}

func TestParseProfileNewlines(t *testing.T) {
	raw := "{'name':\n 'Multi\r Line'}"

	p := ParseProfile(6, raw)
	if p == nil {
		t.Fatal("expected profile")
	}
}

func TestParseProfileUnparseable(t *testing.T) {
	for _, raw := range []string{
		"",
		"not json at all",
		"<html>502 Bad Gateway</html>",
		`[1, 2, 3]`,
		`"just a string"`,
	} {
		if p := ParseProfile(9, raw); p != nil {
			t.Errorf("ParseProfile(%q) = %+v, want nil", raw, p)
		}
	}
}

func TestQuoteAware(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{'a': 1}`, `{"a": 1}`},
		{`{"a": 'b'}`, `{"a": "b"}`},
		{`{'a': 'it\'s'}`, `{"a": "it's"}`},
		{`{'a': 'say "hi"'}`, `{"a": "say \"hi\""}`},
		{`{"keep 'inner' quotes": 1}`, `{"keep 'inner' quotes": 1}`},
	}
	for _, tc := range cases {
		if got := quoteAware(tc.in); got != tc.want {
			t.Errorf("quoteAware(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
