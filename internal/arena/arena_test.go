package arena

import (
	"errors"
	"testing"
)

func TestArena_AllocGet(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		a := New[int]()

		h := a.Alloc(42)
		if h.IsNil() {
			t.Fatal("expected non-nil handle")
		}

		v, err := a.Get(h)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if *v != 42 {
			t.Errorf("expected 42, got %d", *v)
		}
		if a.Len() != 1 {
			t.Errorf("expected Len=1, got %d", a.Len())
		}
	})

	t.Run("mutation through pointer", func(t *testing.T) {
		a := New[int]()

		h := a.Alloc(1)
		v, err := a.Get(h)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		*v = 99

		v2, err := a.Get(h)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if *v2 != 99 {
			t.Errorf("expected 99, got %d", *v2)
		}
	})

	t.Run("nil handle", func(t *testing.T) {
		a := New[int]()

		if _, err := a.Get(Nil); !errors.Is(err, ErrInvalidHandle) {
			t.Errorf("expected ErrInvalidHandle, got %v", err)
		}
		if !Nil.IsNil() {
			t.Error("zero handle should be nil")
		}
	})
}

func TestArena_Free(t *testing.T) {
	t.Run("stale handle detected", func(t *testing.T) {
		a := New[int]()

		h := a.Alloc(7)
		if err := a.Free(h); err != nil {
			t.Fatalf("Free failed: %v", err)
		}

		if _, err := a.Get(h); !errors.Is(err, ErrInvalidHandle) {
			t.Errorf("expected ErrInvalidHandle after free, got %v", err)
		}
	})

	t.Run("double free detected", func(t *testing.T) {
		a := New[int]()

		h := a.Alloc(7)
		if err := a.Free(h); err != nil {
			t.Fatalf("Free failed: %v", err)
		}
		if err := a.Free(h); !errors.Is(err, ErrInvalidHandle) {
			t.Errorf("expected ErrInvalidHandle on double free, got %v", err)
		}
	})

	t.Run("slot reuse bumps generation", func(t *testing.T) {
		a := New[int]()

		old := a.Alloc(1)
		if err := a.Free(old); err != nil {
			t.Fatalf("Free failed: %v", err)
		}

		// The freed slot is recycled under a new generation.
		fresh := a.Alloc(2)
		v, err := a.Get(fresh)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if *v != 2 {
			t.Errorf("expected 2, got %d", *v)
		}

		// The old handle must not alias the recycled slot.
		if _, err := a.Get(old); !errors.Is(err, ErrInvalidHandle) {
			t.Errorf("expected ErrInvalidHandle for recycled slot, got %v", err)
		}
	})
}

func TestArena_PointerStability(t *testing.T) {
	a := New[int]()

	h := a.Alloc(123)
	p1, err := a.Get(h)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// Grow across several pages.
	for i := 0; i < 4*pageSize; i++ {
		a.Alloc(i)
	}

	p2, err := a.Get(h)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p1 != p2 {
		t.Error("pointer moved across arena growth")
	}
	if *p2 != 123 {
		t.Errorf("expected 123, got %d", *p2)
	}
}

func TestArena_Stats(t *testing.T) {
	a := New[string]()

	h1 := a.Alloc("a")
	h2 := a.Alloc("b")
	if err := a.Free(h1); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	_ = h2

	st := a.Stats()
	if st.Live != 1 {
		t.Errorf("expected Live=1, got %d", st.Live)
	}
	if st.Free != 1 {
		t.Errorf("expected Free=1, got %d", st.Free)
	}
	if st.TotalAllocs != 2 {
		t.Errorf("expected TotalAllocs=2, got %d", st.TotalAllocs)
	}
	if st.TotalFrees != 1 {
		t.Errorf("expected TotalFrees=1, got %d", st.TotalFrees)
	}
}
