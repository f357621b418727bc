package runstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/inkwell/workflow"
)

func TestFileStoreCreateGet(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	run, err := store.Create(ctx, "run-1", "zero-downtime deploys")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, "created", run.Status)

	got, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "zero-downtime deploys", got.Topic)
	assert.Empty(t, got.Research.Status)
}

func TestFileStoreCreateDuplicate(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = store.Create(ctx, "run-1", "a")
	require.NoError(t, err)

	_, err = store.Create(ctx, "run-1", "b")
	assert.Error(t, err)
}

func TestFileStoreGetNotFound(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreUpdate(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = store.Create(ctx, "run-1", "topic")
	require.NoError(t, err)

	err = store.Update(ctx, "run-1", func(r *RunState) {
		r.Status = "draft"
		r.Draft = DraftPanel{Status: PanelStatusReady, Text: "hello"}
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "draft", got.Status)
	assert.Equal(t, "hello", got.Draft.Text)

	err = store.Update(ctx, "missing", func(r *RunState) {})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreListOrder(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = store.Create(ctx, "run-1", "first")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = store.Create(ctx, "run-2", "second")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	err = store.Update(ctx, "run-1", func(r *RunState) { r.Status = "research" })
	require.NoError(t, err)

	runs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "run-2", runs[1].ID)
}

func TestProject(t *testing.T) {
	st := workflow.NewState("run-1", "write about caching")
	st.Phase = workflow.PhaseDraft
	st.Plan = &workflow.Plan{Topic: "caching strategies"}
	st.Research = &workflow.Research{
		Facts:   []string{"cache invalidation is hard"},
		Summary: "notes",
	}
	st.Positioning = &workflow.Positioning{Angle: "practical", Audience: "backend engineers"}
	st.Draft = "work in progress"

	run := &RunState{ID: "run-1"}
	Project(run, st)

	assert.Equal(t, "caching strategies", run.Topic)
	assert.Equal(t, workflow.PhaseDraft.String(), run.Status)
	assert.Equal(t, PanelStatusReady, run.Research.Status)
	assert.Equal(t, PanelStatusReady, run.Positioning.Status)
	assert.Equal(t, PanelStatusGenerating, run.Draft.Status)
	assert.Equal(t, "work in progress", run.Draft.Text)

	st.FinalDraft = "done"
	st.ImageStatus = workflow.ImageStatusError
	Project(run, st)
	assert.Equal(t, PanelStatusReady, run.Draft.Status)
	assert.Equal(t, "done", run.Draft.Text)
	assert.Equal(t, PanelStatusError, run.Image.Status)
}
