// Package oauth implements Google sign-in with PKCE and links Google accounts
// to local users.
package oauth
