package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/starford/anchorage/internal/apperr"
)

func TestFail_RoundTripsSentinel(t *testing.T) {
	orig := fmt.Errorf("anchor anchor.x: %w", apperr.ErrNotFound)
	raw, err := json.Marshal(Fail[string](orig))
	if err != nil {
		t.Fatal(err)
	}

	var got Result[string]
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if got.Success {
		t.Fatal("expected failure")
	}
	err = got.Err()
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if err.Error() != orig.Error() {
		t.Errorf("message = %q, want %q", err.Error(), orig.Error())
	}
}

func TestOK(t *testing.T) {
	r := OK([]int{1, 2})
	v, err := r.Unwrap()
	if err != nil || len(v) != 2 {
		t.Errorf("Unwrap = %v, %v", v, err)
	}
}

func TestErr_UnknownCode(t *testing.T) {
	err := Result[any]{Message: "boom", Code: "internal"}.Err()
	if err == nil || err.Error() != "boom" {
		t.Errorf("err = %v", err)
	}
	for _, s := range []error{apperr.ErrNotFound, apperr.ErrConflict} {
		if errors.Is(err, s) {
			t.Errorf("internal error should not match %v", s)
		}
	}
}
