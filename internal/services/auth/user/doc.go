// Package user defines the auth user model used as the shared identity anchor.
//
// Users are created on first Google sign-in and referenced by id from
// marketplace, room, and payment records.
package user
