package util_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/explorrrr/boj-client/internal/util"
)

func TestMultiError(t *testing.T) {
	var m util.MultiError
	if m.Err() != nil {
		t.Fatal("empty MultiError should yield nil")
	}
	sentinel := errors.New("second")
	m.Add(errors.New("first"))
	m.Add(nil)
	m.Add(sentinel)

	err := m.Err()
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "first; second" {
		t.Errorf("Error: expected %q, got %q", "first; second", err.Error())
	}
	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should see collected errors")
	}
}

func TestNormaliseList(t *testing.T) {
	got := util.NormaliseList([]string{" co ", "FM08", "", "co", "bp01"})
	want := []string{"CO", "FM08", "BP01"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormaliseList: expected %v, got %v", want, got)
	}
}

func TestSplitArgs(t *testing.T) {
	got := util.SplitArgs([]string{"A,B", "C"})
	want := []string{"A", "B", "C"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitArgs: expected %v, got %v", want, got)
	}
}
