package game

import "testing"

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Super Mario Odyssey", "super mario odyssey"},
		{"Pokémon: Let's Go, Pikachu!", "pokemon lets go pikachu"},
		{"  The  Legend of Zelda  ", "the legend of zelda"},
		{"NieR:Automata", "nierautomata"},
		{"Ōkami HD", "okami hd"},
		{"DOOM (2016)", "doom 2016"},
		{"", ""},
		{"---", ""},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDedupeKeyPrefersExternalID(t *testing.T) {
	withID := &Candidate{IGDBID: 1020, Name: "Grand Theft Auto V"}
	if got := DedupeKey(withID); got != "igdb:1020" {
		t.Errorf("DedupeKey = %q, want igdb:1020", got)
	}

	nameOnly := &Candidate{Name: "Grand Theft Auto V"}
	if got := DedupeKey(nameOnly); got != "name:grand theft auto v" {
		t.Errorf("DedupeKey = %q, want name key", got)
	}
}

func TestDedupeKeyFoldsNameVariants(t *testing.T) {
	a := &Candidate{Name: "Pokémon Red"}
	b := &Candidate{Name: "pokemon red"}
	if DedupeKey(a) != DedupeKey(b) {
		t.Errorf("expected %q and %q to share a dedupe key", a.Name, b.Name)
	}
}

func TestContainsWord(t *testing.T) {
	cases := []struct {
		haystack string
		word     string
		want     bool
	}{
		{"super mario odyssey", "mario", true},
		{"super mario odyssey", "mar", false},
		{"mario", "mario", true},
		{"mariokart", "mario", false},
	}
	for _, tc := range cases {
		if got := ContainsWord(tc.haystack, tc.word); got != tc.want {
			t.Errorf("ContainsWord(%q, %q) = %v, want %v", tc.haystack, tc.word, got, tc.want)
		}
	}
}

func TestQualityTiers(t *testing.T) {
	cases := []struct {
		name   string
		c      Candidate
		strong bool
		good   bool
	}{
		{"no signals", Candidate{}, false, false},
		{"high rating well established", Candidate{Rating: 85, RatingCount: 120}, true, true},
		{"high rating thin count", Candidate{Rating: 85, RatingCount: 10}, false, true},
		{"rating at strong boundary", Candidate{Rating: 70, RatingCount: 100}, false, false},
		{"massive following only", Candidate{Follows: 1500}, true, true},
		{"moderate following only", Candidate{Follows: 600}, false, true},
		{"small following", Candidate{Follows: 400}, false, false},
		{"good rating no count", Candidate{Rating: 80}, false, true},
	}
	for _, tc := range cases {
		if got := tc.c.StrongQuality(); got != tc.strong {
			t.Errorf("%s: StrongQuality = %v, want %v", tc.name, got, tc.strong)
		}
		if got := tc.c.GoodQuality(); got != tc.good {
			t.Errorf("%s: GoodQuality = %v, want %v", tc.name, got, tc.good)
		}
	}
}

func TestPlatformDirty(t *testing.T) {
	cases := []struct {
		name string
		p    Platform
		want bool
	}{
		{"no status data", Platform{Name: "PC"}, false},
		{"released", Platform{Name: "PC", Statuses: []ReleaseStatus{StatusReleased}}, false},
		{"cancelled only", Platform{Name: "Stadia", Statuses: []ReleaseStatus{StatusCancelled}}, true},
		{"rumored only", Platform{Name: "Switch", Statuses: []ReleaseStatus{StatusRumored}}, true},
		{"cancelled then released", Platform{Name: "PS5", Statuses: []ReleaseStatus{StatusCancelled, StatusReleased}}, false},
		{"early access", Platform{Name: "PC", Statuses: []ReleaseStatus{StatusEarlyAccess}}, false},
		{"delisted", Platform{Name: "PC", Statuses: []ReleaseStatus{StatusDelisted}}, false},
	}
	for _, tc := range cases {
		if got := tc.p.Dirty(); got != tc.want {
			t.Errorf("%s: Dirty = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCategoryRoundTrip(t *testing.T) {
	for c, name := range categoryNames {
		got, ok := CategoryByName(name)
		if !ok || got != c {
			t.Errorf("CategoryByName(%q) = %v, %v; want %v", name, got, ok, c)
		}
	}
	if _, ok := CategoryByName("no-such-category"); ok {
		t.Error("expected lookup miss for unknown category name")
	}
	if got := Category(99).String(); got != "unknown" {
		t.Errorf("Category(99).String() = %q, want unknown", got)
	}
}
