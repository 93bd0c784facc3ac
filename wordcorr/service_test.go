package wordcorr

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceRunScenario(t *testing.T) {
	dir := t.TempDir()
	model := modelOf(t, fruitVocab)
	idx := wordIndex(t, model, fruitReference(t, dir))
	listing := WordList{"apple", "banana", "zzzznotaword"}
	metrics := NewMetrics()

	svc := NewService(Config{}, nil, metrics)
	res, err := svc.Run(context.Background(), listing, model, idx, 0, 3)
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, 0, res.Start)
	assert.Equal(t, 3, res.Stop)

	for _, c := range ScoreColumns {
		assert.InDelta(t, -1.0, res.Rows[0].Get(c), 1e-9, "apple %s", c)
		assert.InDelta(t, 1.0, res.Rows[1].Get(c), 1e-9, "banana %s", c)
		assert.True(t, math.IsNaN(res.Rows[2].Get(c)), "zzzznotaword %s", c)
	}
	assert.Equal(t, []string{"apple", "banana", "zzzznotaword"}, []string{res.Rows[0].Word, res.Rows[1].Word, res.Rows[2].Word})
	assert.Equal(t, 3, res.Undefined())

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.wordsProcessed))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.candidateOOV))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.referenceRows))
}

func TestServiceRunSliceOrder(t *testing.T) {
	dir := t.TempDir()
	model := syntheticModel(t, 40, 6)
	idx := wordIndex(t, model, syntheticReference(t, dir, model, 5))

	svc := NewService(Config{Run: RunConfig{Workers: 3}}, nil, nil)
	res, err := svc.Run(context.Background(), model, model, idx, 7, 29)
	require.NoError(t, err)
	require.Len(t, res.Rows, 22)
	for i, row := range res.Rows {
		assert.Equal(t, model.Word(7+i), row.Word)
	}
}

func TestServiceRunIsDeterministicAcrossWorkers(t *testing.T) {
	dir := t.TempDir()
	model := syntheticModel(t, 60, 8)
	idx := wordIndex(t, model, syntheticReference(t, dir, model, 7))

	run := func(workers int) *Results {
		svc := NewService(Config{Run: RunConfig{Workers: workers}}, nil, nil)
		res, err := svc.Run(context.Background(), model, model, idx, 0, model.Len())
		require.NoError(t, err)
		return res
	}
	base := run(1)
	for _, workers := range []int{2, 4, 16, 100} {
		other := run(workers)
		require.Len(t, other.Rows, len(base.Rows))
		for i := range base.Rows {
			for _, c := range ScoreColumns {
				assert.Equal(t, math.Float64bits(base.Rows[i].Get(c)), math.Float64bits(other.Rows[i].Get(c)),
					"workers=%d row=%d column=%s", workers, i, c)
			}
		}
	}
}

func TestServiceRunConstantScores(t *testing.T) {
	dir := t.TempDir()
	model := modelOf(t, fruitVocab)
	path := writeFile(t, dir, "flat.csv", []byte("words,low,med,high\nfruit,1,1,1\ncar,1,1,1\n"))
	idx := wordIndex(t, model, path)

	res, err := NewService(Config{}, nil, nil).Run(context.Background(), model, model, idx, 0, model.Len())
	require.NoError(t, err)
	require.Len(t, res.Rows, model.Len())
	assert.Equal(t, 3*model.Len(), res.Undefined())
}

func TestServiceRunDropPolicy(t *testing.T) {
	dir := t.TempDir()
	model := modelOf(t, fruitVocab)
	path := writeFile(t, dir, "ref.csv", []byte("words,low,med,high\nfruit,1,1,3\ncar,4,4,1\nbanana,2,9,2\nunseen,100,0,0\n"))
	idx := wordIndex(t, model, path)
	listing := WordList{"apple"}

	zero, err := NewService(Config{}, nil, nil).Run(context.Background(), listing, model, idx, 0, 1)
	require.NoError(t, err)
	drop, err := NewService(Config{Scoring: ScoringConfig{OOVPolicy: OOVDrop}}, nil, nil).Run(context.Background(), listing, model, idx, 0, 1)
	require.NoError(t, err)

	// apple vs fruit, car, banana = 1, 0, 0.6
	known := []float64{1, 0, 0.6}
	assert.InDelta(t, Pearson(known, []float64{1, 4, 2}), drop.Rows[0].LowCor, 1e-6)
	assert.InDelta(t, Pearson(append(known, 0), []float64{1, 4, 2, 100}), zero.Rows[0].LowCor, 1e-6)
	assert.NotEqual(t, zero.Rows[0].LowCor, drop.Rows[0].LowCor)
}

func TestServiceRunInvalidSlice(t *testing.T) {
	dir := t.TempDir()
	model := modelOf(t, fruitVocab)
	idx := wordIndex(t, model, fruitReference(t, dir))
	svc := NewService(Config{}, nil, nil)

	for _, bounds := range [][2]int{{-1, 2}, {3, 2}, {0, 5}} {
		_, err := svc.Run(context.Background(), model, model, idx, bounds[0], bounds[1])
		assert.ErrorIs(t, err, ErrInvalidSlice, "%v", bounds)
	}

	res, err := svc.Run(context.Background(), model, model, idx, 2, 2)
	require.NoError(t, err)
	assert.Empty(t, res.Rows)

	_, err = svc.Run(context.Background(), nil, model, idx, 0, 1)
	assert.Error(t, err)
}

func TestResolveSlice(t *testing.T) {
	start, stop, err := ResolveSlice(RunConfig{Start: 3}, 10)
	require.NoError(t, err)
	assert.Equal(t, [2]int{3, 10}, [2]int{start, stop})

	start, stop, err = ResolveSlice(RunConfig{Start: 1, Stop: 4}, 10)
	require.NoError(t, err)
	assert.Equal(t, [2]int{1, 4}, [2]int{start, stop})

	_, _, err = ResolveSlice(RunConfig{Stop: 11}, 10)
	assert.ErrorIs(t, err, ErrInvalidSlice)
	_, _, err = ResolveSlice(RunConfig{Start: 11}, 10)
	assert.ErrorIs(t, err, ErrInvalidSlice)
}

func TestServiceRunCancelled(t *testing.T) {
	dir := t.TempDir()
	model := modelOf(t, fruitVocab)
	idx := wordIndex(t, model, fruitReference(t, dir))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewService(Config{}, nil, nil).Run(ctx, model, model, idx, 0, model.Len())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServiceProgress(t *testing.T) {
	dir := t.TempDir()
	model := syntheticModel(t, 5, 4)
	idx := wordIndex(t, model, syntheticReference(t, dir, model, 3))
	logger, hook := logtest.NewNullLogger()

	svc := NewService(Config{Run: RunConfig{Workers: 1, ProgressEvery: 2}}, logger, nil)
	var calls []int
	svc.OnProgress(func(done, total int) {
		assert.Equal(t, 5, total)
		calls = append(calls, done)
	})
	_, err := svc.Run(context.Background(), model, model, idx, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, calls)

	var offsets []any
	var messages []string
	for _, e := range hook.AllEntries() {
		messages = append(messages, e.Message)
		if e.Message == "progress" {
			offsets = append(offsets, e.Data["offset"])
		}
	}
	assert.Equal(t, []any{2, 4}, offsets)
	assert.Equal(t, "starting slice", messages[0])
	assert.Equal(t, "slice complete", hook.LastEntry().Message)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
}

func TestServiceWarnsOnReferenceOOV(t *testing.T) {
	dir := t.TempDir()
	model := modelOf(t, fruitVocab)
	path := writeFile(t, dir, "ref.csv", []byte("words,low,med,high\nfruit,1,2,3\nunseen,4,5,6\n"))
	idx := wordIndex(t, model, path)
	logger, hook := logtest.NewNullLogger()

	_, err := NewService(Config{}, logger, nil).Run(context.Background(), model, model, idx, 0, 1)
	require.NoError(t, err)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = true
			assert.Equal(t, 1, e.Data["oov_rows"])
		}
	}
	assert.True(t, warned)
}

// syntheticModel builds n words of dimension dim with deterministic,
// pairwise distinct vectors.
func syntheticModel(t *testing.T, n, dim int) *Model {
	t.Helper()
	m := NewModel(dim)
	for i := 0; i < n; i++ {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = float32(math.Sin(float64(i*dim+j+1) * 0.7))
		}
		_, err := m.Add(fmt.Sprintf("w%03d", i), vec)
		require.NoError(t, err)
	}
	return m
}

// syntheticReference writes rows reference rows taken from the model's words.
func syntheticReference(t *testing.T, dir string, model *Model, rows int) string {
	t.Helper()
	content := "words,low,med,high\n"
	for i := 0; i < rows; i++ {
		content += fmt.Sprintf("%s,%d,%g,%d\n", model.Word(i*3%model.Len()), i, float64(i*i)/3, (i*7)%5)
	}
	return writeFile(t, dir, "synthetic.csv", []byte(content))
}
