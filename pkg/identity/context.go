package identity

import (
	"context"
	"errors"
)

// Context keys for identity information
type contextKey string

const (
	companyIDKey contextKey = "companyId"
	storeIDKey   contextKey = "storeId"
	userIDKey    contextKey = "userId"
)

// Errors for identity context operations
var (
	ErrMissingIdentity  = errors.New("identity context is required")
	ErrMissingCompanyID = errors.New("companyId is required")
	ErrMissingStoreID   = errors.New("storeId is required")
	ErrMissingUserID    = errors.New("userId is required for this operation")
)

// Context holds the identifiers every write must be scoped to.
// The auth collaborator resolves it upstream; the core only reads it.
type Context struct {
	CompanyID string `json:"companyId"`
	StoreID   string `json:"storeId"`
	UserID    string `json:"userId"`
}

// FromContext extracts the identity Context from context.Context.
// Returns an error if companyId or storeId is missing.
func FromContext(ctx context.Context) (*Context, error) {
	ic := &Context{}

	if v := ctx.Value(companyIDKey); v != nil {
		if id, ok := v.(string); ok {
			ic.CompanyID = id
		}
	}
	if v := ctx.Value(storeIDKey); v != nil {
		if id, ok := v.(string); ok {
			ic.StoreID = id
		}
	}
	if v := ctx.Value(userIDKey); v != nil {
		if id, ok := v.(string); ok {
			ic.UserID = id
		}
	}

	if ic.CompanyID == "" {
		return nil, ErrMissingCompanyID
	}
	if ic.StoreID == "" {
		return nil, ErrMissingStoreID
	}

	return ic, nil
}

// ToContext adds identity values to context.Context.
func ToContext(ctx context.Context, ic *Context) context.Context {
	if ic == nil {
		return ctx
	}

	if ic.CompanyID != "" {
		ctx = context.WithValue(ctx, companyIDKey, ic.CompanyID)
	}
	if ic.StoreID != "" {
		ctx = context.WithValue(ctx, storeIDKey, ic.StoreID)
	}
	if ic.UserID != "" {
		ctx = context.WithValue(ctx, userIDKey, ic.UserID)
	}

	return ctx
}

// Validate checks that the context carries everything a write needs.
func (ic *Context) Validate() error {
	if ic == nil {
		return ErrMissingIdentity
	}
	if ic.CompanyID == "" {
		return ErrMissingCompanyID
	}
	if ic.StoreID == "" {
		return ErrMissingStoreID
	}
	if ic.UserID == "" {
		return ErrMissingUserID
	}
	return nil
}
