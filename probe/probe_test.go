package probe

import (
	"context"
	"testing"
	"time"
)

func TestNewFunc_InvalidName(t *testing.T) {
	if _, err := NewFunc("", func(context.Context, time.Time) (bool, error) { return true, nil }); err != ErrInvalidName {
		t.Errorf("NewFunc() error = %v, want %v", err, ErrInvalidName)
	}
}

func TestFunc_Check(t *testing.T) {
	p, err := NewFunc("custom", func(context.Context, time.Time) (bool, error) { return true, nil })
	if err != nil {
		t.Fatalf("NewFunc() error = %v", err)
	}
	ok, err := p.Check(context.Background(), time.Now())
	if err != nil || !ok {
		t.Errorf("Check() = %v, %v, want true, nil", ok, err)
	}
}

func TestSameIdentity(t *testing.T) {
	a, _ := NewFunc("dup", nil)
	b, _ := NewFunc("dup", nil)
	c, _ := NewFunc("other", nil)

	if !SameIdentity(a, b) {
		t.Error("SameIdentity() = false for two probes sharing a name, want true")
	}
	if SameIdentity(a, c) {
		t.Error("SameIdentity() = true for differently-named probes, want false")
	}
}
