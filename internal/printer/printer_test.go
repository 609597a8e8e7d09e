package printer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

// capture redirects output to buffers and disables color for the test.
func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	oldOut, oldErr, oldNoColor := Stdout, Stderr, color.NoColor
	Stdout, Stderr, color.NoColor = &out, &errOut, true
	t.Cleanup(func() {
		Stdout, Stderr, color.NoColor = oldOut, oldErr, oldNoColor
	})
	return &out, &errOut
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		_, errOut := capture(t)
		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "This is a test error")
	})

	t.Run("single suggestion printed plainly", func(t *testing.T) {
		_, errOut := capture(t)
		err := Error("Test Error", "Explanation", []string{"Try this fix"})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "\nTry this fix\n")
		assert.NotContains(t, errOut.String(), "Either")
	})

	t.Run("multiple suggestions numbered", func(t *testing.T) {
		_, errOut := capture(t)
		err := Error("Test Error", "Explanation", []string{"First option", "Second option"})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	_, errOut := capture(t)
	err := ErrorWithContext("Test Error", "Explanation", map[string]string{
		"Period":       "2025",
		"Organization": "gw",
	}, nil)
	require.Equal(t, "Test Error", err.Error())
	assert.Contains(t, errOut.String(), "  Organization: gw\n  Period: 2025\n")
}

func TestMessages(t *testing.T) {
	out, errOut := capture(t)

	Success("saved %d rows\n", 3)
	Success("✓ already marked\n")
	Info("plain\n")
	Step("loading\n")
	Warning("careful\n")

	assert.Equal(t, "✓ saved 3 rows\n✓ already marked\nplain\n→ loading\n", out.String())
	assert.Equal(t, "⚠️  careful\n", errOut.String())
}

func TestNotifier(t *testing.T) {
	_, errOut := capture(t)
	Notifier{}.Notify(errors.New("could not save tasks"))
	assert.Contains(t, errOut.String(), "could not save tasks (your change is kept locally)")
}

func TestStatusLabel(t *testing.T) {
	capture(t)
	assert.Equal(t, "saving…", StatusLabel(model.SaveSaving))
	assert.Equal(t, "saved", StatusLabel(model.SaveSaved))
	assert.Equal(t, "error", StatusLabel(model.SaveError))
	assert.Equal(t, "idle", StatusLabel(model.SaveIdle))
}

func TestSwatch(t *testing.T) {
	r, g, b, ok := parseHex("#ff8040")
	require.True(t, ok)
	assert.Equal(t, []int{255, 128, 64}, []int{r, g, b})

	_, _, _, ok = parseHex("#fff")
	assert.False(t, ok)
	_, _, _, ok = parseHex("zzzzzz")
	assert.False(t, ok)

	assert.Equal(t, "Sam", Swatch("bogus", "Sam"))
}
