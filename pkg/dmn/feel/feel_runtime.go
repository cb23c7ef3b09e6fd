package feel

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pbinitiative/zendmn/pkg/dmn/dmnerr"
)

// DefaultCacheSize is the number of parsed expressions kept by a Runtime.
const DefaultCacheSize = 4096

// Runtime evaluates FEEL expressions. Parsed ASTs are cached by normalized text;
// the runtime holds no per evaluation state and can be shared between goroutines.
type Runtime struct {
	cache *lru.Cache[string, Node]
}

func NewRuntime(cacheSize int) (*Runtime, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, Node](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create expression cache: %w", err)
	}
	return &Runtime{cache: cache}, nil
}

var defaultRuntime = func() *Runtime {
	r, err := NewRuntime(DefaultCacheSize)
	if err != nil {
		panic(err)
	}
	return r
}()

// Default returns the process wide runtime.
func Default() *Runtime {
	return defaultRuntime
}

// Parse returns the cached AST for expression, parsing it on first use.
func (r *Runtime) Parse(expression string) (Node, error) {
	key := normalize(expression)
	if node, ok := r.cache.Get(key); ok {
		return node, nil
	}
	node, err := parse(key)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, node)
	return node, nil
}

// Evaluate evaluates expression against scope. Syntax problems fail with
// dmnerr.FEELSyntax, everything else with dmnerr.FEELEvaluation unless the failure
// already carries a kind of its own.
func (r *Runtime) Evaluate(expression string, scope map[string]any) (any, error) {
	node, err := r.Parse(expression)
	if err != nil {
		return nil, err
	}
	if scope == nil {
		scope = Scope{}
	}
	result, err := node.Eval(scope)
	if err != nil {
		if dmnerr.KindOf(err) == 0 {
			return nil, dmnerr.Wrap(dmnerr.FEELEvaluation, err, "failed to evaluate '%s'", expression)
		}
		return nil, err
	}
	return result, nil
}

// CachedExpressions returns the number of ASTs currently cached.
func (r *Runtime) CachedExpressions() int {
	return r.cache.Len()
}

// Evaluate evaluates expression with the default runtime.
func Evaluate(expression string, scope map[string]any) (any, error) {
	return defaultRuntime.Evaluate(expression, scope)
}
