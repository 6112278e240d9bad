// Package store reads principals and their role and permission assignments from the
// console's relational schema.
//
// SQLStore implements passport.PrincipalStore and permission.Directory over database/sql.
// The same queries run on PostgreSQL (pgx stdlib driver) and SQLite (modernc.org/sqlite);
// placeholders are rewritten per Dialect. Migrate applies the embedded goose migrations.
package store
