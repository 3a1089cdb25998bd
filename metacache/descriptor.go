package metacache

import (
	"encoding/json"
	"sort"
	"strings"
)

// ObjectDescriptor describes one data object. Descriptors returned by the
// cache are shared by every caller and goroutine reading the same
// generation; callers must treat the exported fields as read-only.
type ObjectDescriptor struct {
	ID                int64
	BusinessKey       string
	TableName         string
	Name              string
	ObjectName        string
	Label             string
	Kind              ObjectKind
	IsBaseObject      bool
	ParentBusinessKey string
	ParentTableName   string

	elements   elementSet
	generation string
	parentID   *int64
	partial    bool
}

// ElementDescriptor describes one column of a data object.
type ElementDescriptor struct {
	ID                 int64    `json:"id" yaml:"id"`
	BusinessKey        string   `json:"business_key" yaml:"business_key"`
	ColumnName         string   `json:"column_name" yaml:"column_name"`
	ElementName        string   `json:"element_name" yaml:"element_name"`
	Name               string   `json:"name" yaml:"name"`
	FormLabel          string   `json:"form_label,omitempty" yaml:"form_label,omitempty"`
	DataType           DataType `json:"data_type" yaml:"data_type"`
	IsRequired         bool     `json:"required" yaml:"required"`
	IsIdentifier       bool     `json:"identifier" yaml:"identifier"`
	IsLookup           bool     `json:"lookup" yaml:"lookup"`
	IsMultiSelect      bool     `json:"multi_select" yaml:"multi_select"`
	LookupDefinitionID *int64   `json:"lookup_definition_id,omitempty" yaml:"lookup_definition_id,omitempty"`
	LookupBusinessKey  string   `json:"lookup_business_key,omitempty" yaml:"lookup_business_key,omitempty"`
	LookupTableName    string   `json:"lookup_table_name,omitempty" yaml:"lookup_table_name,omitempty"`
}

// ChildSummary is the short form of a child object.
type ChildSummary struct {
	ID          int64  `json:"id" yaml:"id"`
	TableName   string `json:"table_name" yaml:"table_name"`
	BusinessKey string `json:"business_key" yaml:"business_key"`
	Name        string `json:"name" yaml:"name"`
	Label       string `json:"label" yaml:"label"`
}

// Generation returns the generation the descriptor was built under, or ""
// when it was loaded without a generation.
func (d *ObjectDescriptor) Generation() string { return d.generation }

// Partial reports whether element rows could not be read. Partial
// descriptors carry no elements and are never cached.
func (d *ObjectDescriptor) Partial() bool { return d.partial }

// HasParent reports whether the object has a parent object.
func (d *ObjectDescriptor) HasParent() bool { return d.parentID != nil }

// ParentID returns the id of the parent object, if any.
func (d *ObjectDescriptor) ParentID() (int64, bool) {
	if d.parentID == nil {
		return 0, false
	}
	return *d.parentID, true
}

// ElementByName returns the element with the given element name.
func (d *ObjectDescriptor) ElementByName(name string) (*ElementDescriptor, bool) {
	e, ok := d.elements.byName[foldKey(name)]
	return e, ok
}

// ElementByColumn returns the element bound to the given column.
func (d *ObjectDescriptor) ElementByColumn(column string) (*ElementDescriptor, bool) {
	e, ok := d.elements.byColumn[foldKey(column)]
	return e, ok
}

// ElementByBusinessKey returns the element with the given business key.
func (d *ObjectDescriptor) ElementByBusinessKey(bk string) (*ElementDescriptor, bool) {
	e, ok := d.elements.byBusinessKey[foldKey(bk)]
	return e, ok
}

// Elements returns the elements in store order.
func (d *ObjectDescriptor) Elements() []*ElementDescriptor {
	out := make([]*ElementDescriptor, len(d.elements.ordered))
	copy(out, d.elements.ordered)
	return out
}

// ElementsByBusinessKey returns one element per business key, sorted by
// business key.
func (d *ObjectDescriptor) ElementsByBusinessKey() []*ElementDescriptor {
	keys := make([]string, 0, len(d.elements.byBusinessKey))
	for k := range d.elements.byBusinessKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*ElementDescriptor, len(keys))
	for i, k := range keys {
		out[i] = d.elements.byBusinessKey[k]
	}
	return out
}

// ElementCount returns the number of element rows.
func (d *ObjectDescriptor) ElementCount() int { return len(d.elements.ordered) }

type descriptorDoc struct {
	ID                int64                `json:"id" yaml:"id"`
	BusinessKey       string               `json:"business_key" yaml:"business_key"`
	TableName         string               `json:"table_name" yaml:"table_name"`
	Name              string               `json:"name" yaml:"name"`
	ObjectName        string               `json:"object_name,omitempty" yaml:"object_name,omitempty"`
	Label             string               `json:"label" yaml:"label"`
	Kind              ObjectKind           `json:"kind" yaml:"kind"`
	IsBaseObject      bool                 `json:"base_object" yaml:"base_object"`
	ParentID          *int64               `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	ParentBusinessKey string               `json:"parent_business_key,omitempty" yaml:"parent_business_key,omitempty"`
	ParentTableName   string               `json:"parent_table_name,omitempty" yaml:"parent_table_name,omitempty"`
	Generation        string               `json:"generation,omitempty" yaml:"generation,omitempty"`
	Partial           bool                 `json:"partial,omitempty" yaml:"partial,omitempty"`
	Elements          []*ElementDescriptor `json:"elements" yaml:"elements"`
}

func (d *ObjectDescriptor) doc() descriptorDoc {
	return descriptorDoc{
		ID:                d.ID,
		BusinessKey:       d.BusinessKey,
		TableName:         d.TableName,
		Name:              d.Name,
		ObjectName:        d.ObjectName,
		Label:             d.Label,
		Kind:              d.Kind,
		IsBaseObject:      d.IsBaseObject,
		ParentID:          d.parentID,
		ParentBusinessKey: d.ParentBusinessKey,
		ParentTableName:   d.ParentTableName,
		Generation:        d.generation,
		Partial:           d.partial,
		Elements:          d.Elements(),
	}
}

// MarshalJSON renders the descriptor with its elements.
func (d *ObjectDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.doc())
}

// MarshalYAML renders the descriptor with its elements.
func (d *ObjectDescriptor) MarshalYAML() (any, error) {
	return d.doc(), nil
}

// elementSet keeps elements in store order with three case-insensitive
// indices. Later duplicates replace earlier ones in an index.
type elementSet struct {
	ordered       []*ElementDescriptor
	byName        map[string]*ElementDescriptor
	byColumn      map[string]*ElementDescriptor
	byBusinessKey map[string]*ElementDescriptor
}

func newElementSet(elements []*ElementDescriptor) elementSet {
	s := elementSet{
		ordered:       elements,
		byName:        make(map[string]*ElementDescriptor, len(elements)),
		byColumn:      make(map[string]*ElementDescriptor, len(elements)),
		byBusinessKey: make(map[string]*ElementDescriptor, len(elements)),
	}
	for _, e := range elements {
		if e.ElementName != "" {
			s.byName[foldKey(e.ElementName)] = e
		}
		if e.ColumnName != "" {
			s.byColumn[foldKey(e.ColumnName)] = e
		}
		if e.BusinessKey != "" {
			s.byBusinessKey[foldKey(e.BusinessKey)] = e
		}
	}
	return s
}

func foldKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
