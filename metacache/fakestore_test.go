package metacache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonwraymond/metacache/store"
)

// fakeStore answers the cache's statements from in-memory rows, routing on
// the statement label carried by the context.
type fakeStore struct {
	mu sync.Mutex

	objects   []store.Row
	elements  map[int64][]store.Row
	children  map[int64][]store.Row
	sysconfig []store.Row
	codes     []store.Row
	roles     []store.Row

	fail    map[string]error
	calls   map[string]int
	queries []string
	delay   time.Duration

	// hold, when set, parks the next query until it is closed or the
	// query's context ends. started is closed once that query is parked.
	hold    chan struct{}
	started chan struct{}
}

// holdNext parks the next query and returns a function releasing it.
func (f *fakeStore) holdNext() (started <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hold = make(chan struct{})
	f.started = make(chan struct{})
	hold := f.hold
	return f.started, func() { close(hold) }
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		elements: make(map[int64][]store.Row),
		children: make(map[int64][]store.Row),
		fail:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (f *fakeStore) Query(ctx context.Context, query string, params store.Params) ([]store.Row, error) {
	stmt := store.StatementFromContext(ctx)

	f.mu.Lock()
	f.calls[stmt]++
	f.queries = append(f.queries, query)
	err := f.fail[stmt]
	delay := f.delay
	hold, started := f.hold, f.started
	f.hold, f.started = nil, nil
	f.mu.Unlock()

	if hold != nil {
		close(started)
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch stmt {
	case stmtObjectByBusinessKey:
		return matching(f.objects, "BUSINESS_KEY", params["key"]), nil
	case stmtObjectByTableName:
		return matching(f.objects, "TABLE_NAME", params["key"]), nil
	case stmtElements:
		return f.elements[params["data_object_id"].(int64)], nil
	case stmtChildren:
		return f.children[params["obj_id"].(int64)], nil
	case "system_config":
		return f.sysconfig, nil
	case "lookup_code":
		return matchingInt(f.codes, "ID", params["id"].(int64)), nil
	case "lookup_id":
		return matching(f.codes, "C_CODE", params["code"]), nil
	case "role_id":
		return matching(f.roles, "BUSINESS_KEY", params["role_bk"]), nil
	}
	return nil, nil
}

func (f *fakeStore) Execute(context.Context, string, store.Params) (int64, error) {
	return 0, nil
}

func (f *fakeStore) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail["ping"]
}

func (f *fakeStore) count(stmt string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[stmt]
}

func (f *fakeStore) lastQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return ""
	}
	return f.queries[len(f.queries)-1]
}

func (f *fakeStore) setFail(stmt string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[stmt] = err
}

// matching mimics "upper(col) = :key" for keys bound upper-cased, and a
// plain equality for everything else.
func matching(rows []store.Row, col string, key any) []store.Row {
	want, _ := key.(string)
	var out []store.Row
	for _, row := range rows {
		got := row.String(col)
		if got == want || strings.ToUpper(got) == want {
			out = append(out, row)
		}
	}
	return out
}

func matchingInt(rows []store.Row, col string, want int64) []store.Row {
	var out []store.Row
	for _, row := range rows {
		if n, ok, _ := row.Int64(col); ok && n == want {
			out = append(out, row)
		}
	}
	return out
}

func objectRow(id int64, bk, table string, kind int64) store.Row {
	return store.Row{
		"DATA_OBJECT_ID":   id,
		"BUSINESS_KEY":     bk,
		"TABLE_NAME":       table,
		"NAME":             strings.TrimPrefix(bk, "object."),
		"OBJECT_NAME":      strings.ToLower(table),
		"LABEL":            bk + " label",
		"OBJECT_TYPE":      kind,
		"BASE_OBJECT":      int64(1),
		"PARENT_OBJECT_ID": nil,
	}
}

func childObjectRow(id int64, bk, table string, parentID int64, parentBK, parentTable string) store.Row {
	row := objectRow(id, bk, table, int64(ObjectKindTracking))
	row["BASE_OBJECT"] = int64(0)
	row["PARENT_OBJECT_ID"] = parentID
	row["PARENT_BUSINESS_KEY"] = parentBK
	row["PARENT_TABLE_NAME"] = parentTable
	return row
}

func elementRow(id int64, bk, column string, dataType int64) store.Row {
	return store.Row{
		"DATA_ELEMENT_ID":      id,
		"BUSINESS_KEY":         bk,
		"COLUMN_NAME":          column,
		"ELEMENT_NAME":         strings.ToLower(column),
		"NAME":                 bk,
		"FORM_LABEL":           nil,
		"DATA_TYPE":            dataType,
		"REQUIRED":             "0",
		"IDENTIFIER":           "0",
		"LOOKUP_DEFINITION_ID": nil,
		"LOOKUP_DEFINITION_BK": nil,
		"TABLE_NAME":           nil,
	}
}

// seededStore holds an invoice tracking object with two elements, one of
// them a lookup, a child line-item object and a status reference object.
func seededStore() *fakeStore {
	f := newFakeStore()
	f.objects = []store.Row{
		objectRow(1, "object.invoice", "T_INVOICE", int64(ObjectKindTracking)),
		childObjectRow(2, "object.invoiceLine", "T_INVOICE_LINE", 1, "object.invoice", "T_INVOICE"),
		objectRow(3, "object.status", "T_STATUS", int64(ObjectKindReference)),
	}

	status := elementRow(11, "object.invoice.element.status", "C_STATUS", int64(DataTypeNumber))
	status["LOOKUP_DEFINITION_ID"] = int64(7)
	status["LOOKUP_DEFINITION_BK"] = "lookup.status"
	status["FORM_LABEL"] = "Status"
	amount := elementRow(10, "object.invoice.element.amount", "C_AMOUNT", int64(DataTypeCurrency))
	amount["REQUIRED"] = "1"
	f.elements[1] = []store.Row{amount, status}
	f.elements[2] = []store.Row{elementRow(20, "object.invoiceLine.element.qty", "C_QTY", int64(DataTypeLong))}
	f.elements[3] = []store.Row{elementRow(30, "object.status.element.code", "C_CODE", int64(DataTypeText))}

	f.children[1] = []store.Row{{
		"DATA_OBJECT_ID": int64(2),
		"TABLE_NAME":     "T_INVOICE_LINE",
		"BUSINESS_KEY":   "object.invoiceLine",
		"NAME":           "invoiceLine",
		"LABEL":          "Invoice Line",
	}}

	f.codes = []store.Row{
		{"ID": int64(100), "C_CODE": "OPEN"},
		{"ID": int64(101), "C_CODE": "CLOSED"},
	}
	f.roles = []store.Row{{"ROLE_ID": int64(5), "BUSINESS_KEY": "role.cacheAdmin"}}
	f.sysconfig = []store.Row{
		{"CODE": "maxUploadSize", "VALUE": " 2048 ", "VALUE2": nil, "FILE_ID": nil},
		{"CODE": "siteName", "VALUE": "Records", "VALUE2": "", "FILE_ID": nil},
		{"CODE": "logo", "VALUE": "logo.png", "VALUE2": "image/png", "FILE_ID": int64(77)},
	}
	return f
}
