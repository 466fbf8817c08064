// Package domain holds marketplace rules: seller verification, campaign and
// item listings, purchases, bookings, transactions, and site configuration.
//
// Functions here are pure. They validate input and return new values; the
// storage layer persists them.
package domain
