package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records evaluations and plays back canned results.
type fakeRunner struct {
	evals  []string
	args   [][]any
	result json.RawMessage
	err    error
}

func (f *fakeRunner) Eval(ctx context.Context, js string, args ...any) (json.RawMessage, error) {
	f.evals = append(f.evals, js)
	f.args = append(f.args, args)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestRenderPassesAdsAndReturnsCount(t *testing.T) {
	runner := &fakeRunner{result: json.RawMessage("2")}
	m := NewManager(runner, nil)

	ads := []Ad{
		{Selector: "#top-banner", Description: "Shoe sale"},
		{Selector: "body div:nth-of-type(3)", Description: "Insurance promo"},
	}
	count, err := m.Render(context.Background(), ads)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.Len(t, runner.args, 1)
	require.Len(t, runner.args[0], 1)
	payload, ok := runner.args[0][0].(string)
	require.True(t, ok)

	var sent []Ad
	require.NoError(t, json.Unmarshal([]byte(payload), &sent))
	assert.Equal(t, ads, sent)
}

// A rendered count below the requested count is not an error; the page
// skipped selectors that no longer resolve.
func TestRenderToleratesSkippedSelectors(t *testing.T) {
	runner := &fakeRunner{result: json.RawMessage("1")}
	m := NewManager(runner, nil)

	count, err := m.Render(context.Background(), []Ad{
		{Selector: "#gone", Description: "stale"},
		{Selector: "#still-here", Description: "banner"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRenderEmptySetSkipsEval(t *testing.T) {
	runner := &fakeRunner{}
	m := NewManager(runner, nil)

	count, err := m.Render(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, runner.evals)
}

func TestRenderTransportError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("target closed")}
	m := NewManager(runner, nil)

	_, err := m.Render(context.Background(), []Ad{{Selector: "#x", Description: "d"}})
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	runner := &fakeRunner{result: json.RawMessage("0")}
	m := NewManager(runner, nil)

	require.NoError(t, m.Clear(context.Background()))
	require.Len(t, runner.evals, 1)
	assert.Equal(t, clearScript, runner.evals[0])
}

// Clearing twice in a row, or clearing an already-empty set, is a no-op:
// both sweeps run the same script and neither fails.
func TestClearIsIdempotent(t *testing.T) {
	runner := &fakeRunner{result: json.RawMessage("0")}
	m := NewManager(runner, nil)

	require.NoError(t, m.Clear(context.Background()))
	require.NoError(t, m.Clear(context.Background()))
	require.Len(t, runner.evals, 2)
	assert.Equal(t, clearScript, runner.evals[0])
	assert.Equal(t, clearScript, runner.evals[1])
}
