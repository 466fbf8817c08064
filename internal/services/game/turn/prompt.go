package turn

import (
	"fmt"
	"strings"
)

// MaxLogEntries bounds how much of the room log is sent with each prompt.
const MaxLogEntries = 8

const systemPrompt = `You are the game master of a tabletop role-playing session.
Narrate the outcome of the player's action in two to four vivid sentences.
Respect the dice: never change the result of a check. Stay in the scene and
do not decide actions for other players.`

// BuildPrompt assembles the user prompt for a turn.
func BuildPrompt(state State, actorName string, kind Kind, description, checkSummary string) string {
	var b strings.Builder
	if title := strings.TrimSpace(state.CampaignTitle); title != "" {
		fmt.Fprintf(&b, "Campaign: %s\n", title)
	}
	if scene := strings.TrimSpace(state.Scene); scene != "" {
		fmt.Fprintf(&b, "Scene: %s\n", scene)
	}
	log := state.RecentLog
	if len(log) > MaxLogEntries {
		log = log[len(log)-MaxLogEntries:]
	}
	if len(log) > 0 {
		b.WriteString("Recent events:\n")
		for _, entry := range log {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			fmt.Fprintf(&b, "- %s\n", entry)
		}
	}
	fmt.Fprintf(&b, "Action (%s) by %s: %s\n", kind, actorName, description)
	if checkSummary != "" {
		fmt.Fprintf(&b, "Check: %s\n", checkSummary)
	}
	b.WriteString("Narrate what happens next.")
	return b.String()
}
