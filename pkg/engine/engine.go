// Package engine evaluates catalog source written in a small Lisp DSL.
// It wraps zygomys in a sandboxed environment and produces an immutable
// *catalog.Catalog of buildable definitions.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/kexbuild/pkg/catalog"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error, a runtime error in user code, or a definition
// the catalog rejected.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter for catalog evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	timeout    time.Duration
}

// NewEngine creates a new Engine instance using EvalTimeout.
func NewEngine() *Engine {
	return &Engine{timeout: EvalTimeout}
}

// SetTimeout overrides the per-evaluation time limit. Non-positive values
// restore EvalTimeout.
func (e *Engine) SetTimeout(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d <= 0 {
		d = EvalTimeout
	}
	e.timeout = d
}

// Evaluate is EvaluateContext with a background context.
func (e *Engine) Evaluate(source string) (*catalog.Catalog, []EvalError, error) {
	return e.EvaluateContext(context.Background(), source)
}

// EvaluateContext takes Lisp source code and produces a new catalog.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns catalog + nil errors + nil error
//   - On parse/eval/validation failure: returns nil catalog + eval errors + nil error
//   - On fatal failure (timeout, cancellation, panic): returns nil + nil + error
func (e *Engine) EvaluateContext(ctx context.Context, source string) (*catalog.Catalog, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	timeout := e.timeout
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("engine: panic during evaluation: %v", r)}
			}
		}()

		c, evalErrs, err := e.evaluate(source)
		ch <- evalResult{catalog: c, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ctx, ch, timeout, gen, &e.mu, &e.generation)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*catalog.Catalog, []EvalError, error) {
	// Empty source is a valid program that produces an empty catalog.
	if strings.TrimSpace(source) == "" {
		return catalog.Empty(), nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := &builder{}
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	c, err := catalog.New(b.specs)
	if err != nil {
		return nil, []EvalError{{Message: err.Error()}}, nil
	}
	return c, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
