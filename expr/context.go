package expr

import (
	"regexp"
	"sync/atomic"

	"graphdb.evalgo.org/cache"
	"graphdb.evalgo.org/value"
)

// Context is the evaluation context: a scoped variable store with
// versioned shadowing, inner (comprehension) variables, vertex/edge/path
// bindings, the function registry handle, a shared compiled-regex cache
// and a cancellation flag. Lookups cascade to the parent; writes never
// escape the current scope.
type Context struct {
	parent *Context
	depth  int

	vars  map[string][]value.Value // name -> version stack, top last
	inner map[string]value.Value

	vertex *value.Vertex
	edge   *value.Edge
	paths  map[string]*value.Path

	params map[string]value.Value

	registry   *Registry
	caches     *cache.Manager
	regexCache *cache.Concurrent[string, *regexp.Regexp]

	cancelled *atomic.Bool
}

const regexCacheSize = 256

// NewContext creates a root context over a registry. A nil registry gets
// the default built-in library.
func NewContext(registry *Registry) *Context {
	if registry == nil {
		registry = NewRegistry()
	}
	rc := cache.NewConcurrent[string, *regexp.Regexp](cache.NewLRU[string, *regexp.Regexp](regexCacheSize))
	mgr := cache.NewManager()
	mgr.Track("expr.regex", cache.StrategyLRU, regexCacheSize, rc)
	return &Context{
		vars:       make(map[string][]value.Value),
		inner:      make(map[string]value.Value),
		paths:      make(map[string]*value.Path),
		registry:   registry,
		caches:     mgr,
		regexCache: rc,
		cancelled:  &atomic.Bool{},
	}
}

// ChildContext creates a nested scope sharing the registry, the regex
// cache and the cancellation flag. Writes in the child stay in the child.
func (c *Context) ChildContext() *Context {
	return &Context{
		parent:     c,
		depth:      c.depth + 1,
		vars:       make(map[string][]value.Value),
		inner:      make(map[string]value.Value),
		paths:      make(map[string]*value.Path),
		registry:   c.registry,
		caches:     c.caches,
		regexCache: c.regexCache,
		cancelled:  c.cancelled,
	}
}

// Depth returns the nesting depth, zero for a root context.
func (c *Context) Depth() int { return c.depth }

// Registry returns the function registry handle.
func (c *Context) Registry() *Registry { return c.registry }

// Caches returns the cache manager holding the per-scope caches.
func (c *Context) Caches() *cache.Manager { return c.caches }

// Cancel marks the whole context tree cancelled.
func (c *Context) Cancel() { c.cancelled.Store(true) }

// Cancelled reports whether evaluation has been cancelled.
func (c *Context) Cancelled() bool { return c.cancelled.Load() }

// SetVariable pushes a new version of a variable onto this scope's stack.
func (c *Context) SetVariable(name string, v value.Value) {
	c.vars[name] = append(c.vars[name], v)
}

// GetVariable reads the newest version of a variable. The local stack is
// consulted first, then inner variables, then path bindings, then the
// parent scope.
func (c *Context) GetVariable(name string) (value.Value, bool) {
	if stack := c.vars[name]; len(stack) > 0 {
		return stack[len(stack)-1], true
	}
	if v, ok := c.inner[name]; ok {
		return v, true
	}
	if p, ok := c.paths[name]; ok {
		return value.NewPath(p), true
	}
	if c.parent != nil {
		return c.parent.GetVariable(name)
	}
	return value.Value{}, false
}

// PopVariable removes the newest version of a variable in this scope,
// un-shadowing the previous one.
func (c *Context) PopVariable(name string) {
	stack := c.vars[name]
	if len(stack) == 0 {
		return
	}
	if len(stack) == 1 {
		delete(c.vars, name)
		return
	}
	c.vars[name] = stack[:len(stack)-1]
}

// VariableVersions returns how many versions of a name this scope holds.
func (c *Context) VariableVersions(name string) int {
	return len(c.vars[name])
}

// IsLocalVariable reports whether the name is bound in this scope.
func (c *Context) IsLocalVariable(name string) bool {
	return len(c.vars[name]) > 0
}

// SetInnerVar binds a comprehension iteration variable.
func (c *Context) SetInnerVar(name string, v value.Value) {
	c.inner[name] = v
}

// GetInnerVar reads a comprehension iteration variable from this scope.
func (c *Context) GetInnerVar(name string) (value.Value, bool) {
	v, ok := c.inner[name]
	return v, ok
}

// SetVertex binds the special vertex slot used by Property and Label
// evaluation.
func (c *Context) SetVertex(v *value.Vertex) { c.vertex = v }

// GetVertex returns the bound vertex, cascading to the parent.
func (c *Context) GetVertex() (*value.Vertex, bool) {
	if c.vertex != nil {
		return c.vertex, true
	}
	if c.parent != nil {
		return c.parent.GetVertex()
	}
	return nil, false
}

// SetEdge binds the special edge slot.
func (c *Context) SetEdge(e *value.Edge) { c.edge = e }

// GetEdge returns the bound edge, cascading to the parent.
func (c *Context) GetEdge() (*value.Edge, bool) {
	if c.edge != nil {
		return c.edge, true
	}
	if c.parent != nil {
		return c.parent.GetEdge()
	}
	return nil, false
}

// AddPath binds a named path; Variable lookups find it by name.
func (c *Context) AddPath(name string, p *value.Path) {
	c.paths[name] = p
}

// GetPath returns a named path, cascading to the parent.
func (c *Context) GetPath(name string) (*value.Path, bool) {
	if p, ok := c.paths[name]; ok {
		return p, true
	}
	if c.parent != nil {
		return c.parent.GetPath(name)
	}
	return nil, false
}

// SetParameters installs the per-query parameter map.
func (c *Context) SetParameters(params map[string]value.Value) {
	if params == nil {
		params = map[string]value.Value{}
	}
	c.params = params
}

// Parameter resolves a per-query parameter, cascading to the parent.
func (c *Context) Parameter(name string) (value.Value, bool) {
	if c.params != nil {
		if v, ok := c.params[name]; ok {
			return v, true
		}
	}
	if c.parent != nil {
		return c.parent.Parameter(name)
	}
	return value.Value{}, false
}

// GetRegex compiles a pattern through the shared cache; repeated calls
// with the same pattern reuse the compiled program.
func (c *Context) GetRegex(pattern string) (*regexp.Regexp, error) {
	if re, ok := c.regexCache.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, Errorf(InvalidOperation, "invalid regex pattern %q: %v", pattern, err)
	}
	c.regexCache.Put(pattern, re)
	return re, nil
}
