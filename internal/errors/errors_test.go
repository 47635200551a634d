package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorCodeAndWrap(t *testing.T) {
	cause := stderrors.New("file missing")
	err := New("E101", CategoryConfig, "cannot load config").Wrap(cause)

	if got := err.Error(); !strings.Contains(got, "E101") || !strings.Contains(got, "file missing") {
		t.Errorf("Error() = %q", got)
	}
	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
}

func TestFormat(t *testing.T) {
	err := New("E102", CategoryValidation, "maxRedirects out of range").
		WithDetail("must be a positive integer").
		WithSuggestion("set maxRedirects to a value between 1 and 100")

	out := Format(err)
	for _, want := range []string{"E102", "validation", "positive integer", "hint:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format missing %q:\n%s", want, out)
		}
	}

	plain := stderrors.New("plain")
	if Format(plain) != "plain" {
		t.Errorf("Format(plain) = %q", Format(plain))
	}
}
