package faultline

import (
	"fmt"
	"testing"
)

func TestBreadcrumbManager_Add_EvictsOldestBeyondMax(t *testing.T) {
	m := NewBreadcrumbManager(3)

	for i := 0; i < 10; i++ {
		m.Add(Breadcrumb{
			Type:    BreadcrumbCustom,
			Level:   SeverityInfo,
			Message: fmt.Sprintf("crumb-%d", i),
		})
	}

	got := m.GetAll()
	if len(got) != 3 {
		t.Fatalf("Expected 3 breadcrumbs, got %d", len(got))
	}

	// The last three, in original relative order.
	for i, want := range []string{"crumb-7", "crumb-8", "crumb-9"} {
		if got[i].Message != want {
			t.Errorf("breadcrumb[%d].Message = %q, want %q", i, got[i].Message, want)
		}
	}
}

func TestBreadcrumbManager_GetAll_PreservesInsertionOrder(t *testing.T) {
	m := NewBreadcrumbManager(100)

	for i := 0; i < 5; i++ {
		m.Add(Breadcrumb{Message: fmt.Sprintf("crumb-%d", i)})
	}

	got := m.GetAll()
	for i := range got {
		want := fmt.Sprintf("crumb-%d", i)
		if got[i].Message != want {
			t.Errorf("breadcrumb[%d].Message = %q, want %q", i, got[i].Message, want)
		}
	}
}

func TestBreadcrumbManager_GetAll_ReturnsDefensiveCopy(t *testing.T) {
	m := NewBreadcrumbManager(10)
	m.Add(Breadcrumb{Message: "original", Data: map[string]any{"k": "v"}})

	snapshot := m.GetAll()
	snapshot[0].Message = "mutated"
	snapshot[0].Data["k"] = "mutated"

	got := m.GetAll()
	if got[0].Message != "original" {
		t.Errorf("stored breadcrumb message mutated through snapshot: %q", got[0].Message)
	}
	if got[0].Data["k"] != "v" {
		t.Errorf("stored breadcrumb data mutated through snapshot: %v", got[0].Data)
	}
}

func TestBreadcrumbManager_Clear(t *testing.T) {
	m := NewBreadcrumbManager(10)
	m.Add(Breadcrumb{Message: "one"})
	m.Add(Breadcrumb{Message: "two"})

	m.Clear()

	if m.Count() != 0 {
		t.Errorf("Count after Clear = %d, want 0", m.Count())
	}
	if got := m.GetAll(); got != nil {
		t.Errorf("GetAll after Clear = %v, want nil", got)
	}
}

func TestBreadcrumbManager_Count(t *testing.T) {
	m := NewBreadcrumbManager(10)
	if m.Count() != 0 {
		t.Fatalf("Count of empty manager = %d, want 0", m.Count())
	}

	m.Add(Breadcrumb{Message: "one"})
	m.Add(Breadcrumb{Message: "two"})

	if m.Count() != 2 {
		t.Errorf("Count = %d, want 2", m.Count())
	}
}

func TestBreadcrumbManager_NonPositiveMaxUsesDefault(t *testing.T) {
	m := NewBreadcrumbManager(0)

	for i := 0; i < defaultMaxBreadcrumbs+5; i++ {
		m.Add(Breadcrumb{Message: fmt.Sprintf("crumb-%d", i)})
	}

	if m.Count() != defaultMaxBreadcrumbs {
		t.Errorf("Count = %d, want %d", m.Count(), defaultMaxBreadcrumbs)
	}
}
