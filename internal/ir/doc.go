// Package ir defines the expression and pattern model shared by every other
// package, together with its canonical encoding and content hashing.
//
// ir imports nothing internal. Everything that feeds a hash goes through
// MarshalCanonical.
//
// Key design constraints:
//   - NO floats in canonical JSON: float literals are carried as decimal text
//   - NO null: absent optional fields are omitted
//   - Record fields and bindings iterate in RFC 8785 key order
//   - Expressions are immutable values
package ir
