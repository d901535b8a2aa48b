package task

import (
	"errors"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_ValidateClean(t *testing.T) {
	m := NewManager()
	m.Add(New("a", "", note("a")))
	m.Add(New("b", "", note("b"), "a"))

	assert.NoError(t, m.Validate())
}

func TestManager_Validate(t *testing.T) {
	tests := []struct {
		name      string
		tasks     []*Task
		wantField string
		wantErr   string
	}{
		{
			name:      "missing dependency",
			tasks:     []*Task{New("a", "", note("a"), "ghost")},
			wantField: `tasks["a"].depends_on`,
			wantErr:   "unknown task ghost",
		},
		{
			name:      "missing command",
			tasks:     []*Task{New("a", "", nil)},
			wantField: `tasks["a"].command`,
			wantErr:   "command is required",
		},
		{
			name:      "empty id",
			tasks:     []*Task{New("", "", note(""))},
			wantField: `tasks[""].id`,
			wantErr:   "id is required",
		},
		{
			name: "cycle",
			tasks: []*Task{
				New("a", "", note("a"), "c"),
				New("b", "", note("b"), "a"),
				New("c", "", note("c"), "b"),
			},
			wantField: `tasks["a"].depends_on`,
			wantErr:   ErrCycleDetected.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager()
			for _, task := range tt.tasks {
				m.Add(task)
			}

			err := m.Validate()

			var fieldErrs criterio.FieldErrors
			require.ErrorAs(t, err, &fieldErrs)
			require.NotEmpty(t, fieldErrs)
			assert.Equal(t, tt.wantField, fieldErrs[0].Field)
			assert.Contains(t, fieldErrs[0].Err.Error(), tt.wantErr)
		})
	}
}

func TestManager_ValidateReportsEveryCycleMember(t *testing.T) {
	m := NewManager()
	m.Add(New("a", "", note("a"), "b"))
	m.Add(New("b", "", note("b"), "a"))
	m.Add(New("c", "", note("c"), "a"))

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, m.Validate(), &fieldErrs)

	var fields []string
	for _, fe := range fieldErrs {
		if errors.Is(fe.Err, ErrCycleDetected) {
			fields = append(fields, fe.Field)
		}
	}
	assert.Equal(t, []string{`tasks["a"].depends_on`, `tasks["b"].depends_on`}, fields)
}

func TestManager_ValidateSelfDependency(t *testing.T) {
	m := NewManager()
	m.Add(New("a", "", note("a"), "a"))

	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depends on itself")
}
