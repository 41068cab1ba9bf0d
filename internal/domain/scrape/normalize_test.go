package scrape

import "testing"

func TestNormalizeNameStripsSubstituteMarkers(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    string
		wantSub bool
	}{
		{name: "plain name", raw: "Denise Siegel", want: "Denise Siegel", wantSub: false},
		{name: "tight marker", raw: "Denise Siegel(S)", want: "Denise Siegel", wantSub: true},
		{name: "spaced marker", raw: "Denise Siegel (S)", want: "Denise Siegel", wantSub: true},
		{name: "escalation marker", raw: "Mike Lieberman(S↑)", want: "Mike Lieberman", wantSub: true},
		{name: "marker with inner space", raw: "Mike Lieberman( S )", want: "Mike Lieberman", wantSub: true},
		{name: "surrounding whitespace", raw: "  Denise Siegel (S)  ", want: "Denise Siegel", wantSub: true},
		{name: "unrecognized parenthetical", raw: "Bob Smith (Sr)", want: "Bob Smith (Sr)", wantSub: false},
		{name: "parenthetical mid-name", raw: "Bob (Bobby) Smith", want: "Bob (Bobby) Smith", wantSub: false},
		{name: "lowercase tag not recognized", raw: "Bob Smith (s)", want: "Bob Smith (s)", wantSub: false},
		{name: "empty", raw: "", want: "", wantSub: false},
		{name: "unbalanced close paren", raw: "Bob Smith)", want: "Bob Smith)", wantSub: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, gotSub := NormalizeName(tc.raw)
			if got != tc.want || gotSub != tc.wantSub {
				t.Fatalf("NormalizeName(%q) = (%q, %v), want (%q, %v)", tc.raw, got, gotSub, tc.want, tc.wantSub)
			}
		})
	}
}

func TestNormalizeNameIsStable(t *testing.T) {
	name, sub := NormalizeName("Denise Siegel(S)")
	if !sub {
		t.Fatalf("expected substitute marker to be recognized")
	}

	again, sub2 := NormalizeName(name)
	if again != name || sub2 {
		t.Fatalf("normalizing a normalized name changed it: %q -> %q (sub=%v)", name, again, sub2)
	}
}
