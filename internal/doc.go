// Package internal holds helpers private to the passport module.
//
// # Sub-packages
//
//   - audit: async event dispatch and sinks
//   - config: YAML file and environment loading for cmd/passport
//   - flows: login, logout and authenticate orchestration
//   - httpapi: the chi HTTP surface
//   - logging: slog construction and redaction
package internal
