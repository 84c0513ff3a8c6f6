package textnorm

import "testing"

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  Naruto   Shippuden  ", "Naruto Shippuden"},
		{"Attack&#32;on&#32;Titan", "Attack on Titan"},
		{"Line\none\\two", "Line onetwo"},
		{"Caf&#233;", "Café"},
		{"bad &#0; entity", "bad &#0; entity"},
	}
	for _, tc := range tests {
		if got := CleanText(tc.in); got != tc.want {
			t.Fatalf("CleanText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestReplacer_EncodeDecode_Ordered(t *testing.T) {
	r := NewReplacer(
		[]Pair{{From: "Shippuuden", To: "Sh"}, {From: "Sh", To: "S"}},
		[]Pair{{From: "S", To: "Shippuuden"}},
		nil,
	)
	if got := r.Encode("Naruto Shippuuden"); got != "Naruto S" {
		t.Fatalf("Encode = %q", got)
	}
	if got := r.Decode("Naruto S"); got != "Naruto Shippuuden" {
		t.Fatalf("Decode = %q", got)
	}
}

func TestReplacer_SearchCaseInsensitive(t *testing.T) {
	r := NewReplacer(nil, nil, []Pair{{From: "aot", To: "Shingeki no Kyojin"}, {From: "", To: "ignored"}})
	if got := r.Search("AoT season 2"); got != "Shingeki no Kyojin season 2" {
		t.Fatalf("Search = %q", got)
	}
	if got := r.Search("a.o.t"); got != "a.o.t" {
		t.Fatalf("pattern must be literal, got %q", got)
	}
}

func TestConvertTitle(t *testing.T) {
	r := NewReplacer(nil, []Pair{{From: "NRT", To: "Naruto"}}, nil)
	tests := []struct {
		in, want string
	}{
		{"a=NRT_TV", "Naruto (TV)"},
		{"a=Showies_Partdsj_Twoxb5", "Show: Part, Two.5"},
		{"no_separator", "no separator"},
	}
	for _, tc := range tests {
		if got := r.ConvertTitle(tc.in); got != tc.want {
			t.Fatalf("ConvertTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestConvertDownloadTitle(t *testing.T) {
	r := NewReplacer(nil, nil, nil)
	tests := []struct {
		in, want string
	}{
		{"d=Bleach_TV=Episode_5", "Bleach (TV) Episode 5"},
		{"d=Bleach", "Bleach"},
		{"Bleach", "Bleach"},
	}
	for _, tc := range tests {
		if got := r.ConvertDownloadTitle(tc.in); got != tc.want {
			t.Fatalf("ConvertDownloadTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
