package envutil

import (
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("BC_TEST_INT", "7")
	t.Setenv("BC_TEST_BAD_INT", "seven")
	t.Setenv("BC_TEST_BOOL", "yes")
	t.Setenv("BC_TEST_SECS", "3")
	t.Setenv("BC_TEST_LIST", " a, ,b ,c")

	if got := Int("BC_TEST_INT", 1); got != 7 {
		t.Fatalf("Int: want=7 got=%d", got)
	}
	if got := Int("BC_TEST_BAD_INT", 1); got != 1 {
		t.Fatalf("Int fallback: want=1 got=%d", got)
	}
	if !Bool("BC_TEST_BOOL", false) {
		t.Fatalf("Bool: want=true")
	}
	if Bool("BC_TEST_UNSET_BOOL", false) {
		t.Fatalf("Bool default: want=false")
	}
	if got := Seconds("BC_TEST_SECS", time.Second); got != 3*time.Second {
		t.Fatalf("Seconds: want=3s got=%s", got)
	}
	if got := String("BC_TEST_UNSET_STR", "dflt"); got != "dflt" {
		t.Fatalf("String default: want=dflt got=%s", got)
	}
	got := List("BC_TEST_LIST")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("List: got=%v", got)
	}
}
