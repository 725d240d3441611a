package session

import (
	"strconv"

	"github.com/Seednode/lanparty/internal/game"
	"github.com/Seednode/lanparty/internal/wire"
)

// ImpostorRound is what one impostor start handed out. Assignments are
// indexed by player, the host first.
type ImpostorRound struct {
	Impostors    int
	ShowRole     bool
	CommonWord   string
	ImpostorWord string
	Assignments  []game.Assignment
}

type CharadesRound struct {
	Actors      int
	Words       []string
	Assignments []game.Assignment
}

// SetCategory changes the lobby category for a new round, forgets issued
// words and tells every client.
func (s *Server) SetCategory(category string) {
	s.words.Reset()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.category = category
	s.started = false

	ev := wire.Event{Name: wire.Category, Payload: category}
	for _, c := range s.roster {
		c.enqueue(ev)
	}
}

// DrawWord draws a unique word for the host itself.
func (s *Server) DrawWord() (string, error) {
	return s.words.DrawUnique(s.Category())
}

// BroadcastGuessWordStart starts a round where every player draws their own
// words with request_word.
func (s *Server) BroadcastGuessWordStart(category string) error {
	if _, err := s.words.Source().Words(category); err != nil {
		return err
	}

	s.words.Reset()
	s.unpublish()

	s.mu.Lock()
	s.category = category
	s.started = true
	clients := len(s.roster)
	for _, c := range s.roster {
		c.enqueue(
			wire.Event{Name: wire.Category, Payload: category},
			wire.Event{Name: wire.GameStarted},
		)
	}
	s.mu.Unlock()

	s.log.Info().Str("game", game.GuessWord.String()).Str("category", category).Int("clients", clients).Msg("round started")

	s.hostAssigned(game.Assignment{PlayerIndex: 0, Role: game.RoleNone})

	return nil
}

// BroadcastImpostorStart picks the impostors among all players, host
// included, and tells every client its role and word. One word pair is
// drawn for the whole round; impostors get the odd word, everyone else the
// common one, and every client gets both for the reveal.
func (s *Server) BroadcastImpostorStart(category string, requested int, showRole bool) (ImpostorRound, error) {
	s.words.Reset()

	common, odd, err := s.words.DrawPair(category)
	if err != nil {
		return ImpostorRound{}, err
	}

	s.unpublish()

	s.mu.Lock()

	total := len(s.roster) + 1
	count := game.ImpostorCount(total, requested)
	picked := game.PickPlayers(s.rng, total, count)

	round := ImpostorRound{
		Impostors:    count,
		ShowRole:     showRole,
		CommonWord:   common,
		ImpostorWord: odd,
		Assignments:  make([]game.Assignment, total),
	}

	for player := range total {
		a := game.Assignment{PlayerIndex: player, Role: game.RoleCrewmate, Word: common}
		if picked[player] {
			a.Role = game.RoleImpostor
			a.Word = odd
		}
		round.Assignments[player] = a
	}

	s.category = category
	s.started = true

	for i, c := range s.roster {
		a := round.Assignments[i+1]
		c.enqueue(
			wire.Event{Name: wire.Category, Payload: category},
			wire.Event{Name: wire.ImpostorRole, Payload: string(a.Role)},
			wire.Event{Name: wire.ImpostorCount, Payload: strconv.Itoa(count)},
			wire.Event{Name: wire.ShowImpostorRole, Payload: strconv.FormatBool(showRole)},
			wire.Event{Name: wire.AssignedWord, Payload: a.Word},
			wire.Event{Name: wire.CorrectWord, Payload: common},
			wire.Event{Name: wire.ImpostorWord, Payload: odd},
			wire.Event{Name: wire.GameStarted},
		)
	}
	s.mu.Unlock()

	s.log.Info().
		Str("game", game.Impostor.String()).
		Str("category", category).
		Int("players", total).
		Int("requested", requested).
		Int("impostors", count).
		Msg("round started")

	s.hostAssigned(round.Assignments[0])

	return round, nil
}

// BroadcastCharadesStart picks the actors and draws one shared word set
// that every client receives verbatim.
func (s *Server) BroadcastCharadesStart(category string, requestedActors, requestedWords int) (CharadesRound, error) {
	pool, err := s.words.Source().Words(category)
	if err != nil {
		return CharadesRound{}, err
	}

	// A set never holds the same word twice, even from a short list.
	wordCount := min(game.CharadesWordCount(requestedWords), len(pool))

	s.words.Reset()

	set, err := s.words.DrawSet(category, wordCount)
	if err != nil {
		return CharadesRound{}, err
	}

	s.unpublish()

	s.mu.Lock()

	total := len(s.roster) + 1
	actors := game.ActorCount(total, requestedActors)
	picked := game.PickPlayers(s.rng, total, actors)

	round := CharadesRound{
		Actors:      actors,
		Words:       set,
		Assignments: make([]game.Assignment, total),
	}

	for player := range total {
		a := game.Assignment{PlayerIndex: player, Role: game.RoleGuesser, Words: set}
		if picked[player] {
			a.Role = game.RoleActor
		}
		round.Assignments[player] = a
	}

	s.category = category
	s.started = true

	payload := wire.JoinList(set)
	for i, c := range s.roster {
		c.enqueue(
			wire.Event{Name: wire.Category, Payload: category},
			wire.Event{Name: wire.CharadesRole, Payload: string(round.Assignments[i+1].Role)},
			wire.Event{Name: wire.CharadesActors, Payload: strconv.Itoa(actors)},
			wire.Event{Name: wire.CharadesWordCount, Payload: strconv.Itoa(wordCount)},
			wire.Event{Name: wire.CharadesWords, Payload: payload},
			wire.Event{Name: wire.GameStarted},
		)
	}
	s.mu.Unlock()

	s.log.Info().
		Str("game", game.Charades.String()).
		Str("category", category).
		Int("players", total).
		Int("actors", actors).
		Int("words", wordCount).
		Msg("round started")

	s.hostAssigned(round.Assignments[0])

	return round, nil
}
