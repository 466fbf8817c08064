// Package narrator turns resolved game turns into prose.
//
// Narrators are interchangeable: an OpenAI-compatible chat completion backend
// is used when credentials are configured, and a deterministic template
// narrator otherwise.
package narrator
