package metacache

import (
	"context"
	"maps"
	"strconv"

	"github.com/jonwraymond/metacache/observe"
	"github.com/jonwraymond/metacache/store"
)

// Children returns summaries of the objects whose parent is d, keyed by
// child business key. The first call for a cached descriptor queries the
// store; later calls are served from a memo held in the descriptor's
// generation, including an empty result.
func (c *Cache) Children(ctx context.Context, d *ObjectDescriptor) (map[string]ChildSummary, error) {
	if d == nil {
		return nil, invalidArg("descriptor", nil, "required")
	}
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if children, ok := c.memoizedChildren(d); ok {
		return maps.Clone(children), nil
	}

	key := "children\x00" + d.generation + "\x00" + strconv.FormatInt(d.ID, 10)
	v, err := c.shared(ctx, key, func(ctx context.Context) (any, error) {
		children, err := c.queryChildren(ctx, d)
		if err != nil {
			return nil, err
		}
		c.memoizeChildren(d, children)
		return children, nil
	})
	if err != nil {
		return nil, err
	}
	return maps.Clone(v.(map[string]ChildSummary)), nil
}

func (c *Cache) queryChildren(ctx context.Context, d *ObjectDescriptor) (map[string]ChildSummary, error) {
	rows, err := c.store.Query(store.WithStatement(ctx, stmtChildren), childrenSQL,
		store.Params{"obj_id": d.ID})
	if err != nil {
		c.logger.Error(ctx, "child rows query failed",
			observe.F("business_key", d.BusinessKey), observe.F("error", err))
		return nil, dataAccess(err)
	}

	children := make(map[string]ChildSummary, len(rows))
	for _, row := range rows {
		child, err := childFromRow(row)
		if err != nil {
			return nil, err
		}
		children[child.BusinessKey] = child
	}
	return children, nil
}

func (c *Cache) memoizedChildren(d *ObjectDescriptor) (map[string]ChildSummary, bool) {
	if !c.DictionaryEnabled() || d.generation == "" {
		return nil, false
	}
	c.rootMu.RLock()
	defer c.rootMu.RUnlock()

	r := c.loadRoot()
	if r == nil {
		return nil, false
	}
	p := r.partitions[d.generation]
	if p == nil {
		return nil, false
	}
	memo := p.children[d.ID]
	return memo.children, memo.computed
}

// memoizeChildren records children in d's generation. Evicted or cleared
// generations are not recreated.
func (c *Cache) memoizeChildren(d *ObjectDescriptor, children map[string]ChildSummary) {
	if !c.DictionaryEnabled() || d.generation == "" {
		return
	}
	c.rootMu.Lock()
	defer c.rootMu.Unlock()

	r := c.loadRoot()
	if r == nil {
		return
	}
	if p := r.partitions[d.generation]; p != nil {
		p.children[d.ID] = childMemo{computed: true, children: children}
	}
}

// Parent returns the descriptor of d's parent object.
func (c *Cache) Parent(ctx context.Context, d *ObjectDescriptor) (*ObjectDescriptor, error) {
	if d == nil {
		return nil, invalidArg("descriptor", nil, "required")
	}
	if d.ParentBusinessKey == "" {
		return nil, notFound("parent of", d.BusinessKey)
	}
	return c.ObjectByBusinessKey(ctx, d.ParentBusinessKey)
}
