// Package game holds the game types a session can be hosted for, and the
// role arithmetic shared by every game that hands out special roles.
package game

import (
	"fmt"
	"strings"
)

type Type int

const (
	GuessWord Type = iota
	Charades
	Impostor
	Custom
)

var typeNames = map[Type]string{
	GuessWord: "guessword",
	Charades:  "charades",
	Impostor:  "impostor",
	Custom:    "custom",
}

func Types() []Type {
	return []Type{GuessWord, Charades, Impostor, Custom}
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("type(%d)", int(t))
}

// ServiceType is the DNS-SD service type sessions of this game are
// advertised under, e.g. "_impostor._tcp.".
func (t Type) ServiceType() string {
	return "_" + t.String() + "._tcp."
}

func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(strings.TrimPrefix(s, "_"), "._tcp.")

	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}

	return 0, fmt.Errorf("unknown game type %q", s)
}

type Role string

const (
	RoleNone     Role = ""
	RoleCrewmate Role = "crewmate"
	RoleImpostor Role = "impostor"
	RoleActor    Role = "actor"
	RoleGuesser  Role = "guesser"
)

// Assignment is what one player is told at the start of a round. Player 0 is
// always the host; players 1..N are the connected clients in join order.
type Assignment struct {
	PlayerIndex int      `json:"player_index"`
	Role        Role     `json:"role"`
	Word        string   `json:"word,omitempty"`
	Words       []string `json:"words,omitempty"`
}
