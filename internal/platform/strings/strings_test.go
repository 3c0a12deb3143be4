package strings

import (
	"testing"

	"ledgerlens/internal/platform/testkit"
)

func TestIfEmpty(t *testing.T) {
	t.Parallel()

	in := []int{1, 2, 3}
	def := []int{9}
	got := IfEmpty(in, def)
	if len(got) != 3 || got[0] != 1 {
		t.Fatalf("IfEmpty returned wrong slice: %#v", got)
	}

	var empty []string
	def2 := []string{"x"}
	got2 := IfEmpty(empty, def2)
	if len(got2) != 1 || got2[0] != "x" {
		t.Fatalf("IfEmpty did not return default: %#v", got2)
	}
}

func TestMustPrefix(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want string
	}{
		{"features", "/features"},
		{"/features", "/features"},
		{" features/ ", "/features"},
		{"//cohorts//", "/cohorts"},
	}
	for _, c := range cases {
		if got := MustPrefix(c.in); got != c.want {
			t.Fatalf("MustPrefix(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	testkit.MustPanic(t, func() { MustPrefix("  / ") })
}

func TestSQLNull(t *testing.T) {
	t.Parallel()

	if v := SQLNull("  "); v != nil {
		t.Fatalf("blank should be nil, got %#v", v)
	}
	if v := SQLNull("United Kingdom"); v != "United Kingdom" {
		t.Fatalf("non-blank should pass through, got %#v", v)
	}
}
