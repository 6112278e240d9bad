// Package httpapi serves passport.Engine over HTTP with a chi router.
//
// Routes live under /passport: signin, signout, sessions and authorization. Every
// response uses the envelope written by respondJSON.
package httpapi
