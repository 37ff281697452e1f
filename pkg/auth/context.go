package auth

import (
	"context"
)

// Context keys for authentication data
type contextKey string

const (
	// ContextKeyUserID is the context key for the authenticated ledger user id
	ContextKeyUserID contextKey = "user_id"
	// ContextKeyPartyID is the context key for the caller's acting party
	ContextKeyPartyID contextKey = "party_id"
	// ContextKeyFingerprint is the context key for the caller's key fingerprint
	ContextKeyFingerprint contextKey = "fingerprint"
)

// WithUserID adds the ledger user id to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// UserIDFromContext retrieves the ledger user id from the context
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyUserID).(string)
	return id, ok
}

// WithPartyID adds the acting party to the context
func WithPartyID(ctx context.Context, partyID string) context.Context {
	return context.WithValue(ctx, ContextKeyPartyID, partyID)
}

// PartyIDFromContext retrieves the acting party from the context
func PartyIDFromContext(ctx context.Context) (string, bool) {
	party, ok := ctx.Value(ContextKeyPartyID).(string)
	return party, ok
}

// WithFingerprint adds the key fingerprint to the context
func WithFingerprint(ctx context.Context, fingerprint string) context.Context {
	return context.WithValue(ctx, ContextKeyFingerprint, fingerprint)
}

// FingerprintFromContext retrieves the key fingerprint from the context
func FingerprintFromContext(ctx context.Context) (string, bool) {
	fp, ok := ctx.Value(ContextKeyFingerprint).(string)
	return fp, ok
}

// Info contains the authentication information for a request
type Info struct {
	UserID      string
	PartyID     string
	Fingerprint string
}

// WithInfo adds all authentication info to the context
func WithInfo(ctx context.Context, info *Info) context.Context {
	ctx = WithUserID(ctx, info.UserID)
	ctx = WithPartyID(ctx, info.PartyID)
	ctx = WithFingerprint(ctx, info.Fingerprint)
	return ctx
}

// InfoFromContext retrieves all authentication info from the context
func InfoFromContext(ctx context.Context) *Info {
	info := &Info{}
	info.UserID, _ = UserIDFromContext(ctx)
	info.PartyID, _ = PartyIDFromContext(ctx)
	info.Fingerprint, _ = FingerprintFromContext(ctx)
	return info
}
