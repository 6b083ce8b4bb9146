package titlefetch

import "testing"

func TestShouldAnnounce_S4(t *testing.T) {
	// S4: distinct title is announced.
	if !ShouldAnnounce("http://meep.com/zzz", "Foo bar baz") {
		t.Fatal("expected announcement")
	}
}

func TestShouldAnnounce_S5(t *testing.T) {
	// S5: title mirrors the URL path, suppressed.
	if ShouldAnnounce("http://example.com/foo-bar-baz", "Foo Bar Baz") {
		t.Fatal("expected suppression")
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct{ a, b string; want int }{
		{"", "", 0},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"", "abc", 3},
	}
	for _, c := range cases {
		if got := levenshtein(c.a, c.b); got != c.want {
			t.Errorf("levenshtein(%q,%q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestDifferenceCheck_ShortStrings(t *testing.T) {
	if differenceCheck("abc", "abc") {
		t.Error("identical short strings should not differ")
	}
	if !differenceCheck("abc", "xyz") {
		t.Error("distinct short strings should differ")
	}
}

func TestDifferenceCheck_LongStrings(t *testing.T) {
	long1 := "abcdefghijklmnop"
	long2 := "abcdefghijklmnoq" // distance 1, below threshold of 7
	if differenceCheck(long1, long2) {
		t.Error("expected below-threshold edit distance to not differ")
	}
}
