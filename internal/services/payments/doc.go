// Package payments runs marketplace checkout and fulfills paid checkouts
// from Stripe webhooks.
package payments
