// Package flows contains the orchestrators behind Engine operations.
//
// Each flow takes a dependency struct of plain functions and returns a result; it owns no
// resources and holds no state between calls.
//
// This package must not import the root passport package.
package flows
