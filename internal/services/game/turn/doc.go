// Package turn runs the GM turn pipeline: decide whether an action needs a
// check, resolve it, assemble a narration prompt, and narrate the outcome.
package turn
