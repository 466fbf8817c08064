// Package stripe adapts stripe-go to the platform: Checkout, Connect
// onboarding, transfers and webhook signature verification.
package stripe
