// Package dice resolves ability checks for GM turns.
//
// Two dice systems are supported. The d20 system rolls one twenty-sided die
// and adds the ability modifier. The Role & Roll system draws chained
// four-sided dice whose faces are blank (0), star (1) or R (1 plus one more
// draw on the same row); its score is the count of star and R faces.
//
// Every roll is a pure function of the request and a random source. Resolve
// seeds math/rand from CheckRequest.Seed so a stored seed replays the same
// result; ResolveWithSource accepts any Source for scripted draws.
package dice
