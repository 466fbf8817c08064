// Package storage defines persistence contracts for auth users, linked
// external identities, and pending sign-in state.
package storage
