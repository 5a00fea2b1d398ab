// Package dispatch validates positional call arguments against per-method
// schemas before any domain logic runs.
//
// Every built-in capability declares one signature per method name; unknown
// shapes are rejected at this boundary with the caller-visible messages the
// wire contract promises, so handlers only ever see well-typed arguments.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wagiedev/capwire-go/internal/rpcerr"
)

// Handler executes a method after its arguments validated.
type Handler func(ctx context.Context, args []any) (any, error)

// Param describes one positional argument of a method.
type Param struct {
	// Name is used in debug logging only; the wire never sees it.
	Name string

	// Schema constrains the argument value.
	Schema *jsonschema.Schema

	// Message is the BadRequest text returned when the argument violates
	// the schema.
	Message string
}

// String builds a string-typed parameter.
func String(name, message string) Param {
	return Param{Name: name, Schema: &jsonschema.Schema{Type: "string"}, Message: message}
}

// Number builds a number-typed parameter.
func Number(name, message string) Param {
	return Param{Name: name, Schema: &jsonschema.Schema{Type: "number"}, Message: message}
}

// Method binds a positional signature to a handler.
type Method struct {
	// Params are validated in order against the incoming arguments.
	Params []Param

	// ArityMessage is the BadRequest text returned when the argument count
	// does not match len(Params).
	ArityMessage string

	// IgnoreArgs accepts and discards surplus arguments instead of
	// enforcing arity. Params must be empty when set.
	IgnoreArgs bool

	// Handler runs once validation passes.
	Handler Handler
}

// registered pairs a method with its resolved parameter schemas.
type registered struct {
	method   Method
	resolved []*jsonschema.Resolved
}

// Set is the method table of one capability target.
type Set struct {
	log     *slog.Logger
	methods map[string]*registered
}

// NewSet creates an empty method table.
func NewSet(log *slog.Logger) *Set {
	return &Set{
		log:     log.With("component", "dispatch"),
		methods: make(map[string]*registered, 8),
	}
}

// Register adds a method under name, replacing any previous registration.
//
// Signatures are static program data; Register panics if a parameter schema
// does not resolve.
func (s *Set) Register(name string, method Method) *Set {
	resolved := make([]*jsonschema.Resolved, len(method.Params))

	for i, param := range method.Params {
		r, err := param.Schema.Resolve(nil)
		if err != nil {
			panic(fmt.Sprintf("dispatch: schema for %s parameter %q does not resolve: %v", name, param.Name, err))
		}

		resolved[i] = r
	}

	s.methods[name] = &registered{method: method, resolved: resolved}

	return s
}

// Invoke validates args against the named method's signature and runs its
// handler.
//
// Unknown method names return a NotFound error; arity and type violations
// return the BadRequest messages declared in the signature.
func (s *Set) Invoke(ctx context.Context, name string, args []any) (any, error) {
	reg, ok := s.methods[name]
	if !ok {
		s.log.Debug("Unknown method", "method", name)

		return nil, rpcerr.NotFoundf("method `%s` not found", name)
	}

	method := reg.method

	if !method.IgnoreArgs && len(args) != len(method.Params) {
		s.log.Debug("Arity mismatch", "method", name, "want", len(method.Params), "got", len(args))

		return nil, rpcerr.BadRequest(method.ArityMessage)
	}

	if !method.IgnoreArgs {
		for i, param := range method.Params {
			if err := reg.resolved[i].Validate(args[i]); err != nil {
				s.log.Debug("Argument rejected", "method", name, "param", param.Name, "error", err)

				return nil, rpcerr.BadRequest(param.Message)
			}
		}
	}

	return method.Handler(ctx, args)
}
