package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase_NothingSetBeforeExecute(t *testing.T) {
	cmd := NewNote(Spec{TaskID: "1.1", Name: "note", Description: "hello"})

	assert.Nil(t, cmd.Result())
	assert.Empty(t, cmd.ErrorMessage())
	assert.True(t, cmd.StartedAt().IsZero())
	assert.Equal(t, time.Duration(0), cmd.Duration())
}

func TestBase_ResultErrorExclusivity(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(ctx context.Context) (Result, error)
		wantOK bool
	}{
		{
			name:   "success with payload",
			fn:     func(ctx context.Context) (Result, error) { return NoteResult{Message: "done"}, nil },
			wantOK: true,
		},
		{
			name:   "success without payload",
			fn:     func(ctx context.Context) (Result, error) { return nil, nil },
			wantOK: true,
		},
		{
			name:   "returned error",
			fn:     func(ctx context.Context) (Result, error) { return nil, errors.New("disk full") },
			wantOK: false,
		},
		{
			name:   "error with stray payload",
			fn:     func(ctx context.Context) (Result, error) { return NoteResult{Message: "x"}, errors.New("bad") },
			wantOK: false,
		},
		{
			name:   "panic",
			fn:     func(ctx context.Context) (Result, error) { panic("kaboom") },
			wantOK: false,
		},
		{
			name:   "empty error text",
			fn:     func(ctx context.Context) (Result, error) { return nil, errors.New("") },
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewFunc(Spec{TaskID: "t"}, tt.fn)

			ok := cmd.Execute(context.Background())

			assert.Equal(t, tt.wantOK, ok)
			hasResult := cmd.Result() != nil
			hasError := cmd.ErrorMessage() != ""
			assert.True(t, hasResult != hasError, "exactly one of result/error must be set (result=%v error=%q)", cmd.Result(), cmd.ErrorMessage())
			assert.Equal(t, ok, hasResult)
			assert.False(t, cmd.StartedAt().IsZero())
			assert.False(t, cmd.EndedAt().Before(cmd.StartedAt()))
		})
	}
}

func TestBase_PanicMessage(t *testing.T) {
	cmd := NewFunc(Spec{TaskID: "t"}, func(ctx context.Context) (Result, error) {
		panic("index out of range")
	})

	require.False(t, cmd.Execute(context.Background()))
	assert.Contains(t, cmd.ErrorMessage(), "index out of range")
}

func TestBase_ExecutesOnce(t *testing.T) {
	calls := 0
	cmd := NewFunc(Spec{TaskID: "t"}, func(ctx context.Context) (Result, error) {
		calls++
		return nil, nil
	})

	assert.True(t, cmd.Execute(context.Background()))
	assert.True(t, cmd.Execute(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestBase_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	cmd := NewFunc(Spec{TaskID: "t"}, func(ctx context.Context) (Result, error) {
		called = true
		return nil, nil
	})

	assert.False(t, cmd.Execute(ctx))
	assert.False(t, called)
	assert.Contains(t, cmd.ErrorMessage(), "context canceled")
}

func TestBase_Duration(t *testing.T) {
	cmd := NewFunc(Spec{TaskID: "t"}, func(ctx context.Context) (Result, error) {
		time.Sleep(5 * time.Millisecond)
		return nil, nil
	})

	require.True(t, cmd.Execute(context.Background()))
	assert.GreaterOrEqual(t, cmd.Duration(), 5*time.Millisecond)
}

func TestBase_DefaultRollback(t *testing.T) {
	cmd := NewNote(Spec{TaskID: "t", Description: "msg"})

	assert.True(t, cmd.Rollback(context.Background()), "rollback before execute")
	require.True(t, cmd.Execute(context.Background()))
	assert.True(t, cmd.Rollback(context.Background()))
	assert.True(t, cmd.Rollback(context.Background()), "rollback is idempotent")
	assert.Equal(t, NoteResult{Message: "msg"}, cmd.Result(), "rollback has no observable effect")
}

func TestSpec_Param(t *testing.T) {
	spec := Spec{Params: map[string]string{"a": "1", "empty": ""}}

	assert.Equal(t, "1", spec.Param("a", "x"))
	assert.Equal(t, "x", spec.Param("empty", "x"))
	assert.Equal(t, "y", spec.Param("missing", "y"))
	assert.Equal(t, "z", Spec{}.Param("any", "z"))
}
