package metacache

import (
	"context"
	"errors"
	"strings"

	"github.com/jonwraymond/metacache/observe"
	"github.com/jonwraymond/metacache/store"
)

// Object rows are restricted to the latest schema configuration. Keys are
// bound upper-cased and compared against upper(column).
const (
	objectSelect = `select etkdo.*, etkpo.business_key parent_business_key, etkpo.table_name parent_table_name
from etk_data_object etkdo
left join etk_data_object etkpo on (etkdo.parent_object_id = etkpo.data_object_id)
where etkdo.tracking_config_id = (select max(tracking_config_id) from etk_tracking_config_archive)`

	objectByBusinessKeySQL = objectSelect + `
and upper(etkdo.business_key) = :key`

	objectByTableNameSQL = objectSelect + `
and upper(etkdo.table_name) = :key`

	elementsSQL = `select etkde.*, df.label form_label, etkld.business_key lookup_definition_bk
from etk_data_element etkde
left outer join (select etkdf.data_object_id, etkeb.data_element_id, etkfc.label
    from etk_form_control etkfc
    join etk_form_ctl_element_binding etkeb on (etkfc.form_control_id = etkeb.form_control_id)
    join etk_data_form etkdf on (etkdf.data_form_id = etkfc.data_form_id)
    where etkdf.default_form = 1) df
  on (etkde.data_object_id = df.data_object_id and etkde.data_element_id = df.data_element_id)
left outer join etk_lookup_definition etkld on (etkde.lookup_definition_id = etkld.lookup_definition_id)
where etkde.data_object_id = :data_object_id
order by etkde.business_key`

	childrenSQL = `select data_object_id, table_name, business_key, name, label
from etk_data_object
where parent_object_id = :obj_id`
)

// Statement labels used for telemetry.
const (
	stmtObjectByBusinessKey = "object_by_business_key"
	stmtObjectByTableName   = "object_by_table_name"
	stmtElements            = "elements_by_object"
	stmtChildren            = "children_by_parent"
)

// load reads a descriptor from the store. A store miss returns ErrNotFound.
func (c *Cache) load(ctx context.Context, idx lookupIndex, key, generation string) (*ObjectDescriptor, error) {
	op := observe.Operation{Component: "cache", Name: "populate." + idx.String()}
	out, err := c.mw.Wrap(func(ctx context.Context, _ observe.Operation) (any, error) {
		return c.populate(ctx, idx, key, generation)
	})(ctx, op)
	if err != nil {
		return nil, err
	}
	d, _ := out.(*ObjectDescriptor)
	if d == nil {
		c.metrics.RecordLookup(ctx, idx.String(), observe.OutcomeNotFound)
		return nil, notFound(idx.String(), key)
	}
	return d, nil
}

// populate returns (nil, nil) on a store miss so the miss is not reported
// as a failed operation.
func (c *Cache) populate(ctx context.Context, idx lookupIndex, key, generation string) (*ObjectDescriptor, error) {
	query, stmt := objectByBusinessKeySQL, stmtObjectByBusinessKey
	if idx == indexTableName {
		query, stmt = objectByTableNameSQL, stmtObjectByTableName
	}

	rows, err := c.store.Query(store.WithStatement(ctx, stmt), query, store.Params{"key": key})
	if err != nil {
		c.logger.Error(ctx, "object row query failed",
			observe.F(idx.String(), key), observe.F("error", err))
		return nil, notFoundFault(idx.String(), key, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) > 1 {
		c.logger.Warn(ctx, "multiple object rows matched, using the first",
			observe.F(idx.String(), key), observe.F("rows", len(rows)))
	}

	d, err := objectFromRow(rows[0])
	if err != nil {
		return nil, err
	}
	d.generation = generation

	elements, err := c.loadElements(ctx, d.ID)
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return nil, err
	case err != nil:
		c.logger.Error(ctx, "element rows query failed, returning partial descriptor",
			observe.F("business_key", d.BusinessKey), observe.F("data_object_id", d.ID), observe.F("error", err))
		d.partial = true
		d.elements = newElementSet(nil)
	default:
		d.elements = newElementSet(elements)
	}
	return d, nil
}

func (c *Cache) loadElements(ctx context.Context, objectID int64) ([]*ElementDescriptor, error) {
	rows, err := c.store.Query(store.WithStatement(ctx, stmtElements), elementsSQL,
		store.Params{"data_object_id": objectID})
	if err != nil {
		return nil, dataAccess(err)
	}
	elements := make([]*ElementDescriptor, 0, len(rows))
	for _, row := range rows {
		e, err := elementFromRow(row)
		if err != nil {
			return nil, err
		}
		elements = append(elements, e)
	}
	return elements, nil
}

func objectFromRow(row store.Row) (*ObjectDescriptor, error) {
	id, err := requiredInt64(row, "DATA_OBJECT_ID")
	if err != nil {
		return nil, err
	}
	code, err := requiredInt64(row, "OBJECT_TYPE")
	if err != nil {
		return nil, err
	}
	kind, err := ParseObjectKind(code)
	if err != nil {
		return nil, err
	}
	parentID, err := optionalInt64(row, "PARENT_OBJECT_ID")
	if err != nil {
		return nil, err
	}

	return &ObjectDescriptor{
		ID:                id,
		BusinessKey:       row.String("BUSINESS_KEY"),
		TableName:         row.String("TABLE_NAME"),
		Name:              row.String("NAME"),
		ObjectName:        row.String("OBJECT_NAME"),
		Label:             row.String("LABEL"),
		Kind:              kind,
		IsBaseObject:      row.Bool("BASE_OBJECT"),
		parentID:          parentID,
		ParentBusinessKey: row.String("PARENT_BUSINESS_KEY"),
		ParentTableName:   row.String("PARENT_TABLE_NAME"),
	}, nil
}

func elementFromRow(row store.Row) (*ElementDescriptor, error) {
	id, err := requiredInt64(row, "DATA_ELEMENT_ID")
	if err != nil {
		return nil, err
	}
	code, err := requiredInt64(row, "DATA_TYPE")
	if err != nil {
		return nil, err
	}
	dataType, err := ParseDataType(code)
	if err != nil {
		return nil, err
	}
	lookupDefID, err := optionalInt64(row, "LOOKUP_DEFINITION_ID")
	if err != nil {
		return nil, err
	}

	e := &ElementDescriptor{
		ID:                 id,
		BusinessKey:        row.String("BUSINESS_KEY"),
		ColumnName:         row.String("COLUMN_NAME"),
		ElementName:        row.String("ELEMENT_NAME"),
		Name:               row.String("NAME"),
		FormLabel:          row.String("FORM_LABEL"),
		DataType:           dataType,
		IsRequired:         row.Bool("REQUIRED"),
		IsIdentifier:       row.Bool("IDENTIFIER"),
		LookupDefinitionID: lookupDefID,
		LookupTableName:    strings.TrimSpace(row.String("TABLE_NAME")),
	}
	if lookupDefID != nil {
		e.IsLookup = true
		e.LookupBusinessKey = row.String("LOOKUP_DEFINITION_BK")
	}
	if e.LookupTableName != "" {
		e.IsLookup = true
		e.IsMultiSelect = true
	}
	return e, nil
}

func childFromRow(row store.Row) (ChildSummary, error) {
	id, err := requiredInt64(row, "DATA_OBJECT_ID")
	if err != nil {
		return ChildSummary{}, err
	}
	return ChildSummary{
		ID:          id,
		TableName:   row.String("TABLE_NAME"),
		BusinessKey: row.String("BUSINESS_KEY"),
		Name:        row.String("NAME"),
		Label:       row.String("LABEL"),
	}, nil
}

func requiredInt64(row store.Row, col string) (int64, error) {
	n, ok, err := row.Int64(col)
	if err != nil {
		return 0, invalidArg(col, row.Value(col), "not an integer")
	}
	if !ok {
		return 0, invalidArg(col, nil, "missing")
	}
	return n, nil
}

func optionalInt64(row store.Row, col string) (*int64, error) {
	n, ok, err := row.Int64(col)
	if err != nil {
		return nil, invalidArg(col, row.Value(col), "not an integer")
	}
	if !ok {
		return nil, nil
	}
	return &n, nil
}
