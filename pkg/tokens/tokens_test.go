package tokens

import "testing"

func TestWhitespace(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"one", 1},
		{"Operators must file reports.", 4},
		{"  spaced \t out\nwords  ", 3},
	}
	for _, c := range cases {
		if got := Whitespace(c.text); got != c.want {
			t.Fatalf("Whitespace(%q) = %d, want %d", c.text, got, c.want)
		}
	}
}

func TestNewCounter_UnknownEncoding(t *testing.T) {
	if _, err := NewCounter("no-such-encoding"); err == nil {
		t.Fatal("expected error for unknown encoding")
	}
}
