package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		// empty -> default
		{"", 10, 10},
		// valid ints
		{"42", 0, 42},
		{"-13", 1, -13},
		{"0012", 99, 12},
		// invalid -> default (no trim)
		{"x", 5, 5},
		{" 42", 7, 7},
		// overflow -> default
		{"999999999999999999999999", -1, -1},
	}

	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestPageParams(t *testing.T) {
	cases := []struct {
		rawPage, rawPer string
		wantPage        int
		wantPer         int
	}{
		{"", "", 1, 20},         // defaults
		{"3", "10", 3, 10},      // passthrough
		{"0", "0", 1, 20},       // coerced minimums
		{"-2", "-5", 1, 20},     // negatives
		{"2", "500", 2, 100},    // clamp to max
		{"x", "y", 1, 20},       // unparsable
	}

	for _, tc := range cases {
		page, per := PageParams(tc.rawPage, tc.rawPer, 20, 100)
		if page != tc.wantPage || per != tc.wantPer {
			t.Fatalf("PageParams(%q, %q) = (%d, %d); want (%d, %d)",
				tc.rawPage, tc.rawPer, page, per, tc.wantPage, tc.wantPer)
		}
	}
}
