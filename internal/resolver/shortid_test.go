package resolver

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

func TestResolveTaskID(t *testing.T) {
	tasks := []model.Task{
		{ID: "abc12345-0000-4000-8000-000000000001"},
		{ID: "abc19999-0000-4000-8000-000000000002"},
		{ID: "7"},
	}

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr func(error) bool
	}{
		{name: "unique prefix", input: "abc12", want: tasks[0].ID},
		{name: "full id", input: tasks[1].ID, want: tasks[1].ID},
		{name: "legacy numeric id", input: "7", want: "7"},
		{name: "ambiguous prefix", input: "abc1", wantErr: IsAmbiguousError},
		{name: "too short", input: "ab", wantErr: IsNotFoundError},
		{name: "no match", input: "ffff", wantErr: IsNotFoundError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveTaskID(tasks, tt.input)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tt.wantErr(err), "unexpected error type: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatMatches(t *testing.T) {
	var matches []string
	for i := 0; i < 12; i++ {
		matches = append(matches, fmt.Sprintf("id-%02d", i))
	}
	out := FormatMatches(&AmbiguousError{ShortID: "id", Matches: matches})

	assert.Contains(t, out, "  id-09\n")
	assert.NotContains(t, out, "id-10")
	assert.True(t, strings.HasSuffix(out, "  ...and 2 more\n"))
}
