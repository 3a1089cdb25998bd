package metacache

import (
	"context"
	"strings"

	"github.com/jonwraymond/metacache/store"
)

const roleIDSQL = `select role_id from etk_role where upper(business_key) = :role_bk`

// LookupCode returns the c_code of row id in the table of the reference
// object objectBusinessKey.
func (c *Cache) LookupCode(ctx context.Context, objectBusinessKey string, id int64) (string, error) {
	table, err := c.lookupTable(ctx, objectBusinessKey)
	if err != nil {
		return "", err
	}
	rows, err := c.store.Query(store.WithStatement(ctx, "lookup_code"),
		"select c_code from "+table+" where id = :id", store.Params{"id": id})
	if err != nil {
		return "", dataAccess(err)
	}
	if len(rows) == 0 {
		return "", notFound("lookup id", objectBusinessKey)
	}
	return rows[0].String("C_CODE"), nil
}

// LookupID returns the id of the row with c_code code in the table of the
// reference object objectBusinessKey.
func (c *Cache) LookupID(ctx context.Context, objectBusinessKey, code string) (int64, error) {
	if strings.TrimSpace(code) == "" {
		return 0, invalidArg("code", nil, "required")
	}
	table, err := c.lookupTable(ctx, objectBusinessKey)
	if err != nil {
		return 0, err
	}
	rows, err := c.store.Query(store.WithStatement(ctx, "lookup_id"),
		"select id from "+table+" where c_code = :code", store.Params{"code": code})
	if err != nil {
		return 0, dataAccess(err)
	}
	if len(rows) == 0 {
		return 0, notFound("lookup code", code)
	}
	return requiredInt64(rows[0], "ID")
}

// RoleID returns the id of the role with the given business key.
func (c *Cache) RoleID(ctx context.Context, roleBusinessKey string) (int64, error) {
	bk := strings.TrimSpace(roleBusinessKey)
	if bk == "" {
		return 0, invalidArg("role business key", nil, "required")
	}
	rows, err := c.store.Query(store.WithStatement(ctx, "role_id"), roleIDSQL, store.Params{"role_bk": strings.ToUpper(bk)})
	if err != nil {
		return 0, dataAccess(err)
	}
	if len(rows) == 0 {
		return 0, notFound("role", bk)
	}
	return requiredInt64(rows[0], "ROLE_ID")
}

func (c *Cache) lookupTable(ctx context.Context, objectBusinessKey string) (string, error) {
	d, err := c.ObjectByBusinessKey(ctx, objectBusinessKey)
	if err != nil {
		return "", err
	}
	table, err := store.QuoteIdent(c.store, d.TableName)
	if err != nil {
		return "", invalidArg("table name", d.TableName, err.Error())
	}
	return table, nil
}
