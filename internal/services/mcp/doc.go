// Package mcp exposes the dice resolver as Model Context Protocol tools.
package mcp
