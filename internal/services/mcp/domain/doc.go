// Package domain defines MCP dice tool schemas and handlers.
package domain
