// Package storage defines the marketplace persistence contracts: seller
// profiles, listings, purchases, payments, site configuration, room logs and
// the integration outbox.
package storage
