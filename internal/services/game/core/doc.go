// Package core holds game-system-agnostic mechanics shared by the turn
// processor and the dice tools. Dice rolling lives in the dice subpackage.
package core
