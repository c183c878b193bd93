package services

import "testing"

func TestCanonicalVideoURLKeepsIdentifyingParams(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "watch id survives",
			in:   "https://www.youtube.com/watch?v=AAA",
			want: "https://www.youtube.com/watch?v=AAA",
		},
		{
			name: "tracking stripped, id kept",
			in:   "https://WWW.YouTube.com/watch?v=AAA&utm_source=share&fbclid=xyz&ref=home",
			want: "https://www.youtube.com/watch?v=AAA",
		},
		{
			name: "playlist param kept and sorted",
			in:   "https://www.youtube.com/watch?list=PL9&v=AAA",
			want: "https://www.youtube.com/watch?list=PL9&v=AAA",
		},
		{
			name: "fragment and trailing slash dropped",
			in:   "https://www.tiktok.com/@user/video/123/?utm_campaign=x#top",
			want: "https://www.tiktok.com/@user/video/123",
		},
		{
			name: "missing scheme defaults https",
			in:   "//instagram.com/reel/abc?igsh=tracker",
			want: "https://instagram.com/reel/abc",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CanonicalVideoURL(tc.in)
			if err != nil {
				t.Fatalf("canonicalize %q: %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("canonical(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCanonicalVideoURLDistinguishesVideos(t *testing.T) {
	a, err := CanonicalVideoURL("https://www.youtube.com/watch?v=AAA")
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	b, err := CanonicalVideoURL("https://www.youtube.com/watch?v=BBB")
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if a == b {
		t.Fatalf("different videos must not collapse: both %q", a)
	}
}

func TestCanonicalVideoURLRejectsHostless(t *testing.T) {
	if _, err := CanonicalVideoURL("not-a-url"); err == nil {
		t.Fatal("hostless input must error")
	}
}
