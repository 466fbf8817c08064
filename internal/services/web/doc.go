// Package web serves the marketplace and play JSON API.
//
// Requests resolve a viewer from a signed session token (bearer header or
// cookie) and dispatch to the marketplace, payments, room, media and dice
// services. Every handler writes JSON; domain errors map to HTTP statuses
// through the platform error codes.
package web
