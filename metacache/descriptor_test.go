package metacache

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestParseObjectKind(t *testing.T) {
	tests := []struct {
		code    int64
		want    ObjectKind
		name    string
		wantErr bool
	}{
		{0, ObjectKindNone, "NONE", false},
		{1, ObjectKindTracking, "TRACKING", false},
		{2, ObjectKindReference, "REFERENCE", false},
		{3, ObjectKindEScan, "ESCAN", false},
		{4, 0, "", true},
		{-1, 0, "", true},
	}
	for _, tt := range tests {
		got, err := ParseObjectKind(tt.code)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("ParseObjectKind(%d) error = %v, want ErrInvalidArgument", tt.code, err)
			}
			continue
		}
		if err != nil || got != tt.want || got.String() != tt.name {
			t.Errorf("ParseObjectKind(%d) = %v, %v", tt.code, got, err)
		}
	}
}

func TestParseDataType(t *testing.T) {
	for _, code := range []int64{1, 2, 3, 4, 5, 8, 9, 10, 11, 12, 13, 14} {
		dt, err := ParseDataType(code)
		if err != nil {
			t.Errorf("ParseDataType(%d) error = %v", code, err)
			continue
		}
		var back DataType
		text, _ := dt.MarshalText()
		if err := back.UnmarshalText([]byte(strings.ToLower(string(text)))); err != nil || back != dt {
			t.Errorf("text form of %d does not parse back: %q", code, text)
		}
	}
	for _, code := range []int64{0, 6, 7, 15} {
		if _, err := ParseDataType(code); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("ParseDataType(%d) error = %v, want ErrInvalidArgument", code, err)
		}
	}
}

func TestElementIndexes_LaterDuplicateWins(t *testing.T) {
	first := &ElementDescriptor{ID: 1, BusinessKey: "bk", ColumnName: "C_A", ElementName: "a"}
	second := &ElementDescriptor{ID: 2, BusinessKey: "BK", ColumnName: "c_b", ElementName: "b"}
	d := &ObjectDescriptor{elements: newElementSet([]*ElementDescriptor{first, second})}

	if e, _ := d.ElementByBusinessKey("bk"); e != second {
		t.Errorf("ElementByBusinessKey() = %+v, want later element", e)
	}
	if d.ElementCount() != 2 || len(d.ElementsByBusinessKey()) != 1 {
		t.Errorf("ElementCount() = %d, ElementsByBusinessKey() = %d", d.ElementCount(), len(d.ElementsByBusinessKey()))
	}
	if e, ok := d.ElementByColumn(" C_B "); !ok || e != second {
		t.Error("column lookup is not case-insensitive")
	}
	if _, ok := d.ElementByName("missing"); ok {
		t.Error("unexpected element")
	}

	// Elements returns a copy.
	d.Elements()[0] = nil
	if d.Elements()[0] != first {
		t.Error("Elements() exposed internal slice")
	}
}

func TestDescriptor_Encoding(t *testing.T) {
	parent := int64(1)
	d := &ObjectDescriptor{
		ID:                2,
		BusinessKey:       "object.invoiceLine",
		TableName:         "T_INVOICE_LINE",
		Kind:              ObjectKindTracking,
		parentID:          &parent,
		ParentBusinessKey: "object.invoice",
		generation:        "g1",
		elements: newElementSet([]*ElementDescriptor{
			{ID: 20, BusinessKey: "object.invoiceLine.element.qty", ColumnName: "C_QTY", DataType: DataTypeLong},
		}),
	}

	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	if doc["kind"] != "TRACKING" || doc["generation"] != "g1" || doc["parent_id"] != float64(1) {
		t.Errorf("json = %s", raw)
	}
	elements := doc["elements"].([]any)
	if len(elements) != 1 || elements[0].(map[string]any)["data_type"] != "LONG" {
		t.Errorf("json elements = %v", elements)
	}

	out, err := yaml.Marshal(d)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	for _, want := range []string{"kind: TRACKING", "data_type: LONG", "business_key: object.invoiceLine"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("yaml missing %q:\n%s", want, out)
		}
	}
}

func TestTracker(t *testing.T) {
	tr := newTracker(2)
	t0 := time.Unix(0, 0)

	if _, evicted, ok := tr.track("a", t0); evicted || !ok {
		t.Fatal("first generation evicted something")
	}
	if _, evicted, ok := tr.track("a", t0); evicted || !ok {
		t.Fatal("re-tracking a known generation evicted something")
	}
	tr.track("b", t0.Add(time.Second))
	id, evicted, ok := tr.track("c", t0.Add(2*time.Second))
	if !ok || !evicted || id != "a" {
		t.Errorf("track(c) = %q, %v, %v, want a evicted", id, evicted, ok)
	}

	gens, total := tr.snapshot()
	if len(gens) != 2 || gens[0].ID != "b" || gens[1].ID != "c" || total != 1 {
		t.Errorf("snapshot() = %+v, %d", gens, total)
	}
	if newTracker(0).max != DefaultMaxGenerations {
		t.Error("non-positive bound should default")
	}
}

func TestTracker_RetiredNeverReturns(t *testing.T) {
	tr := newTracker(1)
	t0 := time.Unix(0, 0)

	tr.track("a", t0)
	if _, evicted, _ := tr.track("b", t0); !evicted || !tr.isRetired("a") {
		t.Fatal("a should be retired after b")
	}
	if _, evicted, ok := tr.track("a", t0); ok || evicted {
		t.Errorf("track(retired) = accepted %v, evicted %v", ok, evicted)
	}
	if gens, _ := tr.snapshot(); len(gens) != 1 || gens[0].ID != "b" {
		t.Errorf("snapshot() = %+v, want [b]", gens)
	}

	for i := 0; i < maxRetired+1; i++ {
		tr.track(strconv.Itoa(i), t0)
	}
	if tr.isRetired("a") {
		t.Error("retired ids should be bounded")
	}
}
