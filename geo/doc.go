// Package geo resolves a client IP address to a coarse location string.
//
// Locations use the "country|region|province|city|isp" layout with "0" for unknown
// segments. Callers treat a lookup failure as an empty location.
package geo
