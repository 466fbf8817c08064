// Package domain holds worker event handlers and their retry classification.
package domain
