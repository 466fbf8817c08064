// Package app orchestrates marketplace use cases: seller onboarding and
// verification, campaign and item listings, and site configuration.
package app
