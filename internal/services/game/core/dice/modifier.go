package dice

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultScore is assumed for any ability missing from a score set.
const DefaultScore = 10

// Ability names one of the six classic ability scores.
type Ability string

const (
	AbilityStrength     Ability = "strength"
	AbilityDexterity    Ability = "dexterity"
	AbilityConstitution Ability = "constitution"
	AbilityIntelligence Ability = "intelligence"
	AbilityWisdom       Ability = "wisdom"
	AbilityCharisma     Ability = "charisma"
)

var abilityAliases = map[string]Ability{
	"strength":     AbilityStrength,
	"str":          AbilityStrength,
	"dexterity":    AbilityDexterity,
	"dex":          AbilityDexterity,
	"constitution": AbilityConstitution,
	"con":          AbilityConstitution,
	"intelligence": AbilityIntelligence,
	"int":          AbilityIntelligence,
	"wisdom":       AbilityWisdom,
	"wis":          AbilityWisdom,
	"charisma":     AbilityCharisma,
	"cha":          AbilityCharisma,
}

// ParseAbility resolves an ability name or abbreviation, case-insensitively.
func ParseAbility(name string) (Ability, bool) {
	ability, ok := abilityAliases[strings.ToLower(strings.TrimSpace(name))]
	return ability, ok
}

// Abilities maps ability names (any case, full or abbreviated) to scores.
type Abilities map[string]int

// Score returns the score for ability, or DefaultScore when absent.
func (a Abilities) Score(ability Ability) int {
	if score, ok := a[string(ability)]; ok {
		return score
	}
	// Among aliases ("STR", "Str", "Strength") the shortest key wins, then
	// the lexically smallest.
	best, found := "", false
	for name := range a {
		parsed, ok := ParseAbility(name)
		if !ok || parsed != ability {
			continue
		}
		if !found || len(name) < len(best) || (len(name) == len(best) && name < best) {
			best, found = name, true
		}
	}
	if found {
		return a[best]
	}
	return DefaultScore
}

// ActionKind classifies the player action that triggered a check.
type ActionKind string

const (
	ActionAttack ActionKind = "attack"
	ActionSkill  ActionKind = "skill"
	ActionCheck  ActionKind = "check"
)

// ParseActionKind normalizes an action kind label.
func ParseActionKind(value string) (ActionKind, bool) {
	switch ActionKind(strings.ToLower(strings.TrimSpace(value))) {
	case ActionAttack:
		return ActionAttack, true
	case ActionSkill:
		return ActionSkill, true
	case ActionCheck:
		return ActionCheck, true
	default:
		return "", false
	}
}

// Basis names the rule used to pick the ability score.
type Basis string

const (
	// BasisPhysical uses the higher of strength and dexterity.
	BasisPhysical Basis = "physical"
	// BasisMagic uses intelligence.
	BasisMagic Basis = "magic"
	// BasisAbility uses the single ability named by the check type.
	BasisAbility Basis = "ability"
)

var (
	// ErrInvalidAction indicates the action kind is not attack, skill or check.
	ErrInvalidAction = errors.New("action kind must be attack, skill, or check")
	// ErrUnknownCheckType indicates the explicit check type is not recognised.
	ErrUnknownCheckType = errors.New("check type must be physical, magic, or an ability name")
)

var magicKeywords = []string{"spell", "cast", "magic", "arcane", "ritual", "enchant", "incant", "conjur"}

// Action describes the player action being resolved.
type Action struct {
	Kind        ActionKind
	Description string
	// CheckType optionally forces the basis: "physical", "magic", or an
	// ability name such as "wisdom".
	CheckType string
}

// ModifierResult reports which score produced the modifier.
type ModifierResult struct {
	Basis    Basis
	Ability  Ability
	Score    int
	Modifier int
}

// AbilityModifier returns floor((score - 10) / 2).
func AbilityModifier(score int) int {
	delta := score - DefaultScore
	q := delta / 2
	if delta%2 != 0 && delta < 0 {
		q--
	}
	return q
}

// ResolveModifier picks the relevant ability score for action and derives its modifier.
func ResolveModifier(action Action, scores Abilities) (ModifierResult, error) {
	if _, ok := ParseActionKind(string(action.Kind)); !ok {
		return ModifierResult{}, ErrInvalidAction
	}

	basis, ability, err := checkBasis(action)
	if err != nil {
		return ModifierResult{}, err
	}

	var score int
	switch basis {
	case BasisPhysical:
		strength := scores.Score(AbilityStrength)
		dexterity := scores.Score(AbilityDexterity)
		ability, score = AbilityStrength, strength
		if dexterity > strength {
			ability, score = AbilityDexterity, dexterity
		}
	case BasisMagic:
		ability, score = AbilityIntelligence, scores.Score(AbilityIntelligence)
	default:
		score = scores.Score(ability)
	}

	return ModifierResult{
		Basis:    basis,
		Ability:  ability,
		Score:    score,
		Modifier: AbilityModifier(score),
	}, nil
}

func checkBasis(action Action) (Basis, Ability, error) {
	checkType := strings.ToLower(strings.TrimSpace(action.CheckType))
	switch checkType {
	case "":
	case string(BasisPhysical):
		return BasisPhysical, "", nil
	case string(BasisMagic):
		return BasisMagic, "", nil
	default:
		if ability, ok := ParseAbility(checkType); ok {
			return BasisAbility, ability, nil
		}
		return "", "", fmt.Errorf("%w: %q", ErrUnknownCheckType, action.CheckType)
	}

	if isMagicDescription(action.Description) {
		return BasisMagic, "", nil
	}
	return BasisPhysical, "", nil
}

func isMagicDescription(description string) bool {
	description = strings.ToLower(description)
	for _, keyword := range magicKeywords {
		if strings.Contains(description, keyword) {
			return true
		}
	}
	return false
}
