package engineerr

import (
	"errors"
	"testing"
)

func TestPrefixInvalidErrorUnwraps(t *testing.T) {
	err := &PrefixInvalidError{Prefix: ""}
	if !errors.Is(err, ErrPrefixInvalid) {
		t.Errorf("expected PrefixInvalidError to unwrap to ErrPrefixInvalid")
	}
}

func TestSentinelsDistinct(t *testing.T) {
	sentinels := []error{ErrPrefixInvalid, ErrTransient, ErrCapacity, ErrDegraded, ErrFatal}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinels %v and %v should be distinct", a, b)
			}
		}
	}
}
