/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package wire implements the line protocol spoken between a session host
// and its clients: one JSON object per line, each carrying an event name and
// a flat string payload.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Event names, host to client unless noted.
const (
	Category          = "category"
	GameStarted       = "game_started"
	NewWord           = "new_word"
	AssignedWord      = "assigned_word"
	CorrectWord       = "correct_word"
	ImpostorWord      = "impostor_word"
	ImpostorRole      = "impostor_role"
	ImpostorCount     = "impostor_count"
	ShowImpostorRole  = "show_impostor_role"
	CharadesRole      = "charades_role"
	CharadesActors    = "charades_actor_count"
	CharadesWordCount = "charades_word_count"
	CharadesWords     = "charades_words"
	Error             = "error"

	// RequestWord is sent client to host.
	RequestWord = "request_word"
)

// MaxLineSize bounds a single encoded event.
const MaxLineSize = 64 * 1024

var ErrMalformed = errors.New("malformed event")

type Event struct {
	Name    string `json:"event"`
	Payload string `json:"payload"`
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%q)", e.Name, e.Payload)
}

// Encode writes ev followed by a newline.
func Encode(w io.Writer, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	data = append(data, '\n')

	_, err = w.Write(data)

	return err
}

// Decode parses a single line. Surrounding whitespace is ignored; a line
// without an event name is rejected.
func Decode(line []byte) (Event, error) {
	var ev Event

	if err := json.Unmarshal(line, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if ev.Name == "" {
		return Event{}, fmt.Errorf("%w: missing event name", ErrMalformed)
	}

	return ev, nil
}

// JoinList flattens words into a single payload. Commas inside a word are
// replaced so the list always splits back into the same number of items.
func JoinList(items []string) string {
	clean := make([]string, len(items))
	for i, item := range items {
		clean[i] = strings.ReplaceAll(item, ",", " ")
	}

	return strings.Join(clean, ",")
}

func SplitList(payload string) []string {
	if payload == "" {
		return nil
	}

	return strings.Split(payload, ",")
}
