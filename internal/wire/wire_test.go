package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWritesOneLine(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Encode(&buf, Event{Name: Category, Payload: "Animals"}))

	assert.Equal(t, `{"event":"category","payload":"Animals"}`+"\n", buf.String())
}

func TestDecode(t *testing.T) {
	ev, err := Decode([]byte(`{"event":"new_word","payload":"otter"}`))
	require.NoError(t, err)
	assert.Equal(t, Event{Name: NewWord, Payload: "otter"}, ev)

	ev, err = Decode([]byte(`  {"event":"game_started","payload":""}  `))
	require.NoError(t, err)
	assert.Equal(t, GameStarted, ev.Name)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, line := range []string{
		``,
		`not json`,
		`{"payload":"x"}`,
		`{"event":"category","payload":["nested"]}`,
	} {
		_, err := Decode([]byte(line))
		assert.ErrorIs(t, err, ErrMalformed, line)
	}
}

func TestListPayload(t *testing.T) {
	payload := JoinList([]string{"bread, sliced", "otter", "moon"})
	assert.Equal(t, "bread  sliced,otter,moon", payload)
	assert.Len(t, SplitList(payload), 3)
	assert.Nil(t, SplitList(""))
}
