// Package service wires the MCP dice tools into a server and its transports.
package service
