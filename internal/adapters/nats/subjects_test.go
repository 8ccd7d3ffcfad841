package natsadapter

import "testing"

func TestMapConfigSubject(t *testing.T) {
	tests := []struct {
		eventType, projectID, want string
	}{
		{"saved", "p1", "plotmap.mapconfig.saved.p1"},
		{"deleted", "aradhana", "plotmap.mapconfig.deleted.aradhana"},
		{"saved", "a.b", "plotmap.mapconfig.saved._C4N64"},
	}
	for _, tt := range tests {
		if got := MapConfigSubject(tt.eventType, tt.projectID); got != tt.want {
			t.Errorf("expected %s, got %s", tt.want, got)
		}
	}
}

func TestMapConfigFilter(t *testing.T) {
	if got := MapConfigFilter(""); got != "plotmap.mapconfig.>" {
		t.Errorf("unexpected wildcard filter %s", got)
	}
	if got := MapConfigFilter("p1"); got != "plotmap.mapconfig.*.p1" {
		t.Errorf("unexpected project filter %s", got)
	}
}

func TestToken_DistinctIDsDoNotCollide(t *testing.T) {
	ids := []string{"a.b", "a_b", "a b", "a*b", "a>b", "ab", "_C4N64", "", "plot-7"}
	seen := map[string]string{}
	for _, id := range ids {
		tok := token(id)
		if tok == "" {
			t.Errorf("%q: empty token", id)
		}
		for _, r := range tok {
			if r == '.' || r == '*' || r == '>' || r == ' ' {
				t.Errorf("%q: token %q contains %q", id, tok, r)
			}
		}
		if prev, ok := seen[tok]; ok {
			t.Errorf("%q and %q share token %q", prev, id, tok)
		}
		seen[tok] = id
	}
}
