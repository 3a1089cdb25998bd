package metacache

import (
	"context"
	"errors"
	"testing"

	"github.com/jonwraymond/metacache/epoch"
)

func TestChildren_Memoized(t *testing.T) {
	s := seededStore()
	c, _ := newTestCache(t, s)
	ctx := context.Background()

	invoice, err := c.ObjectByBusinessKey(ctx, "object.invoice")
	if err != nil {
		t.Fatal(err)
	}
	children, err := c.Children(ctx, invoice)
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	line, ok := children["object.invoiceLine"]
	if !ok || line.ID != 2 || line.TableName != "T_INVOICE_LINE" || line.Label != "Invoice Line" {
		t.Fatalf("Children() = %+v", children)
	}

	// Callers get a copy.
	delete(children, "object.invoiceLine")
	again, err := c.Children(ctx, invoice)
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 1 {
		t.Errorf("memo was mutated through a returned map: %v", again)
	}
	if n := s.count(stmtChildren); n != 1 {
		t.Errorf("children queries = %d, want 1", n)
	}
}

func TestChildren_EmptyResultMemoized(t *testing.T) {
	s := seededStore()
	c, _ := newTestCache(t, s)
	ctx := context.Background()

	status, err := c.ObjectByBusinessKey(ctx, "object.status")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		children, err := c.Children(ctx, status)
		if err != nil {
			t.Fatalf("Children() error = %v", err)
		}
		if len(children) != 0 {
			t.Errorf("Children() = %v, want empty", children)
		}
	}
	if n := s.count(stmtChildren); n != 1 {
		t.Errorf("children queries = %d, want 1", n)
	}
}

func TestChildren_UncachedDescriptorAlwaysQueries(t *testing.T) {
	s := seededStore()
	c, _ := newTestCache(t, s, WithDictionaryEnabled(false))
	ctx := context.Background()

	invoice, err := c.ObjectByBusinessKey(ctx, "object.invoice")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = c.Children(ctx, invoice)
	_, _ = c.Children(ctx, invoice)
	if n := s.count(stmtChildren); n != 2 {
		t.Errorf("children queries = %d, want 2", n)
	}
}

func TestChildren_EvictedGenerationNotRecreated(t *testing.T) {
	s := seededStore()
	src := epoch.NewManual()
	c, _ := newTestCache(t, s, WithEpoch(src), WithMaxGenerations(1))
	ctx := context.Background()

	old, err := c.ObjectByBusinessKey(ctx, "object.invoice")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = src.Bump(ctx)
	if _, err := c.ObjectByBusinessKey(ctx, "object.status"); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Children(ctx, old); err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	st := c.Stats(ctx)
	if len(st.Generations) != 1 || st.Generations[0].ID == old.Generation() {
		t.Errorf("evicted generation came back: %+v", st.Generations)
	}
	_, _ = c.Children(ctx, old)
	if n := s.count(stmtChildren); n != 2 {
		t.Errorf("children queries = %d, want 2", n)
	}
}

func TestChildren_Errors(t *testing.T) {
	s := seededStore()
	c, _ := newTestCache(t, s)
	ctx := context.Background()

	if _, err := c.Children(ctx, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Children(nil) error = %v, want ErrInvalidArgument", err)
	}

	invoice, err := c.ObjectByBusinessKey(ctx, "object.invoice")
	if err != nil {
		t.Fatal(err)
	}
	s.setFail(stmtChildren, errors.New("deadlock"))
	if _, err := c.Children(ctx, invoice); !errors.Is(err, ErrDataAccess) {
		t.Errorf("Children() error = %v, want ErrDataAccess", err)
	}

	// Failures are not memoized.
	s.setFail(stmtChildren, nil)
	children, err := c.Children(ctx, invoice)
	if err != nil || len(children) != 1 {
		t.Errorf("Children() after recovery = %v, %v", children, err)
	}
}

func TestParent(t *testing.T) {
	c, _ := newTestCache(t, seededStore())
	ctx := context.Background()

	line, err := c.ObjectByTableName(ctx, "T_INVOICE_LINE")
	if err != nil {
		t.Fatal(err)
	}
	if id, ok := line.ParentID(); !ok || id != 1 || !line.HasParent() || line.ParentTableName != "T_INVOICE" {
		t.Fatalf("child descriptor = %+v", line)
	}
	parent, err := c.Parent(ctx, line)
	if err != nil {
		t.Fatalf("Parent() error = %v", err)
	}
	if parent.BusinessKey != "object.invoice" {
		t.Errorf("Parent() = %s", parent.BusinessKey)
	}

	if _, ok := parent.ParentID(); ok || parent.HasParent() {
		t.Errorf("base object reports a parent")
	}
	if _, err := c.Parent(ctx, parent); !errors.Is(err, ErrNotFound) {
		t.Errorf("Parent(base object) error = %v, want ErrNotFound", err)
	}
}
