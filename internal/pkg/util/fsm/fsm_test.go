package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/looplab/fsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapEvent(t *testing.T) {
	boom := errors.New("boom")
	m := fsm.NewFSM("a",
		fsm.Events{{Name: "go", Src: []string{"a"}, Dst: "b"}},
		fsm.Callbacks{
			"enter_b": WrapEvent(func(ctx context.Context, e *fsm.Event) error { return boom }),
		},
	)

	err := m.Event(context.Background(), "go")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "b", m.Current())
}

func TestArg(t *testing.T) {
	e := &fsm.Event{Event: "go", Args: []any{"x", 3}}

	s, err := Arg[string](e, 0)
	require.NoError(t, err)
	assert.Equal(t, "x", s)

	_, err = Arg[string](e, 1)
	assert.Error(t, err)

	_, err = Arg[int](e, 5)
	assert.Error(t, err)
}
