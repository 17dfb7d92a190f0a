package subst

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// Gensym generates fresh names of the form prefix$N from a monotonically
// increasing counter. It is an explicit value, not process state: whoever
// owns the evaluation owns the counter, and tests reset their own.
//
// Safe for concurrent use.
type Gensym struct {
	n atomic.Uint64
}

// NewGensym returns a counter starting at 0.
func NewGensym() *Gensym {
	return &Gensym{}
}

// Next returns prefix$N and advances the counter. Any $-suffix already on
// prefix is dropped first so repeated renames stay short (x$2, not x$0$2).
func (g *Gensym) Next(prefix string) string {
	n := g.n.Add(1) - 1
	return baseName(prefix) + "$" + strconv.FormatUint(n, 10)
}

// Reset restarts the counter. Only for deterministic fixtures.
func (g *Gensym) Reset() {
	g.n.Store(0)
}

// Count returns how many names have been generated since the last reset.
func (g *Gensym) Count() uint64 {
	return g.n.Load()
}

func baseName(name string) string {
	if i := strings.IndexByte(name, '$'); i > 0 {
		return name[:i]
	}
	return name
}
