// Package middleware adapts passport.Engine to net/http.
//
// # Handlers
//
//   - [ClientIP] records the remote address for Engine.Login.
//   - [Guard] rejects requests without a live session token.
//   - [RequirePermission] additionally requires a permission of the signed-in user.
//
// The token is read from the Authorization header, with or without a "Bearer " prefix.
// All decisions are delegated to the engine.
package middleware
