// Package sqlite implements marketplace persistence on SQLite.
//
// Checkout fulfillment, free grants and seat bookings run inside one SQL
// transaction each so capacity and ownership checks see a consistent view.
package sqlite
