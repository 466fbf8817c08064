// Package auth owns identity for the marketplace: who a user is and how a
// browser proves it.
//
// Other services depend only on the stable user ID it hands out.
//
// Subpackages:
//   - oauth: Google sign-in with PKCE, state tracking, and account linking
//   - session: signed session tokens carried in the web cookie
//   - storage: persistence interfaces with a SQLite implementation
//   - user: the user model and its validation
package auth
