// Package room hosts campaign play rooms: membership, voice, and the GM log.
package room
