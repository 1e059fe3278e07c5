package services

import "context"

// Actor is the authenticated caller, established per request by the
// authorizer session and never persisted by this layer.
type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// OperationResult is the discriminated outcome every entity and file
// operation returns. Success=true implies Data is present; Success=false
// implies at least one of Error or ValidationErrors is set. No operation
// panics or leaks a raw persistence error past this shape.
type OperationResult struct {
	Success          bool        `json:"success"`
	Data             interface{} `json:"data,omitempty"`
	Error            string      `json:"error,omitempty"`
	ValidationErrors []string    `json:"validationErrors,omitempty"`
}

// ValidationResult is the outcome of a business-rule check. IsValid is false
// iff Errors is non-empty; every violation is reported, not just the first.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings,omitempty"`
}

func validResult() ValidationResult {
	return ValidationResult{IsValid: true, Errors: []string{}}
}

func invalidResult(errors ...string) ValidationResult {
	return ValidationResult{IsValid: false, Errors: errors}
}

func successResult(data interface{}) OperationResult {
	return OperationResult{Success: true, Data: data}
}

func errorResult(message string) OperationResult {
	return OperationResult{Success: false, Error: message}
}

func validationFailure(errors []string) OperationResult {
	return OperationResult{Success: false, ValidationErrors: errors}
}

// SessionProvider resolves the current actor for a request context.
type SessionProvider interface {
	GetUser(ctx context.Context) (*Actor, error)
}

type actorContextKey struct{}

// WithActor stores the authenticated actor in a request context. The auth
// middleware calls this after validating the session cookie.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor, or nil.
func ActorFromContext(ctx context.Context) *Actor {
	if actor, ok := ctx.Value(actorContextKey{}).(*Actor); ok {
		return actor
	}
	return nil
}

// ContextSession is a SessionProvider that reads the actor the auth
// middleware placed in the request context.
type ContextSession struct{}

// GetUser implements SessionProvider.
func (ContextSession) GetUser(ctx context.Context) (*Actor, error) {
	actor := ActorFromContext(ctx)
	if actor == nil || actor.ID == "" {
		return nil, errNoSession
	}
	return actor, nil
}
