package modal_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/streamconsole/internal/form"
	"github.com/matthewbaird/streamconsole/internal/modal"
	"github.com/matthewbaird/streamconsole/internal/types"
)

type mockCommitter struct {
	mu        sync.Mutex
	creates   []map[string]any
	updates   map[int64][]map[string]any
	refetches int
	err       error
	block     chan struct{}
}

func newMockCommitter() *mockCommitter {
	return &mockCommitter{updates: make(map[int64][]map[string]any)}
}

func (m *mockCommitter) Create(ctx context.Context, payload map[string]any) (int64, error) {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates = append(m.creates, payload)
	if m.err != nil {
		return 0, m.err
	}
	return 11, nil
}

func (m *mockCommitter) Update(ctx context.Context, id int64, payload map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates[id] = append(m.updates[id], payload)
	return m.err
}

func (m *mockCommitter) Refetch(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refetches++
	return nil
}

func groupSchema() modal.Schema {
	return modal.Static([]form.FieldDescriptor{
		{Name: "name", Type: form.TypeInput, Rules: []form.Rule{form.Required("name is required")}},
	})
}

func TestOrchestrator_ValidationFailureStaysOpen(t *testing.T) {
	m := newMockCommitter()
	o := modal.New(m)
	require.NoError(t, o.OpenCreate(groupSchema(), nil))

	_, err := o.Commit(context.Background(), form.FormState{})
	require.Error(t, err)

	var verrs form.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "name", verrs[0].Field)

	s := o.Session()
	assert.Equal(t, modal.CreateOpen, s.State)
	assert.Len(t, s.Errors, 1)
	assert.Empty(t, m.creates)
	assert.Equal(t, 0, m.refetches)
}

func TestOrchestrator_EditCommitUpdatesOnceAndRefetchesOnce(t *testing.T) {
	m := newMockCommitter()
	o := modal.New(m)
	rec := types.Persisted(5, map[string]any{"name": "old", "owner": "ops"})
	require.NoError(t, o.OpenEdit(groupSchema(), rec))
	assert.Equal(t, "old", o.Session().Values["name"])

	id, err := o.Commit(context.Background(), form.FormState{"name": "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)

	assert.Equal(t, map[int64][]map[string]any{5: {{"name": "x"}}}, m.updates)
	assert.Equal(t, 1, m.refetches)
	assert.Equal(t, modal.Closed, o.Session().State)
}

func TestOrchestrator_CreateSendsVisibleValuesOnly(t *testing.T) {
	m := newMockCommitter()
	o := modal.New(m)
	schema := modal.Static([]form.FieldDescriptor{
		{Name: "type", Type: form.TypeRadio, InitialValue: "MYSQL"},
		{
			Name:        "bucketName",
			Type:        form.TypeInput,
			VisibleWhen: &form.VisibilityRule{Field: "type", Operator: form.OpEq, Value: "COS"},
			Rules:       []form.Rule{form.Required("")},
		},
		{Name: "url", Type: form.TypeInput},
	})
	require.NoError(t, o.OpenCreate(schema, nil))
	assert.Equal(t, form.FormState{"type": "MYSQL"}, o.Session().Values)

	id, err := o.Commit(context.Background(), form.FormState{
		"type":       "MYSQL",
		"bucketName": "left over from COS",
		"url":        "jdbc:mysql://db",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
	assert.Equal(t, []map[string]any{{"type": "MYSQL", "url": "jdbc:mysql://db"}}, m.creates)
}

func TestOrchestrator_RemoteFailureKeepsSessionOpen(t *testing.T) {
	m := newMockCommitter()
	m.err = errors.New("503 service unavailable")
	o := modal.New(m)
	require.NoError(t, o.OpenCreate(groupSchema(), nil))

	values := form.FormState{"name": "orders"}
	_, err := o.Commit(context.Background(), values)
	require.Error(t, err)

	s := o.Session()
	assert.Equal(t, modal.CreateOpen, s.State)
	assert.Equal(t, values, s.Values)
	assert.False(t, s.Submitting)
	assert.EqualError(t, s.LastErr, "503 service unavailable")
	assert.Equal(t, 0, m.refetches)

	// the user can retry from the same session
	m.err = nil
	_, err = o.Commit(context.Background(), values)
	require.NoError(t, err)
	assert.Equal(t, modal.Closed, o.Session().State)
	assert.Equal(t, 1, m.refetches)
}

func TestOrchestrator_Transitions(t *testing.T) {
	o := modal.New(newMockCommitter())

	require.NoError(t, o.OpenCreate(groupSchema(), nil))
	assert.ErrorIs(t, o.OpenCreate(groupSchema(), nil), modal.ErrInvalidTransition)
	assert.ErrorIs(t, o.OpenEdit(groupSchema(), types.Persisted(1, nil)), modal.ErrInvalidTransition)

	o.Cancel()
	assert.Equal(t, modal.Closed, o.Session().State)
	o.Cancel()
	assert.Equal(t, modal.Closed, o.Session().State)

	require.NoError(t, o.OpenEdit(groupSchema(), types.Persisted(1, nil)))
	assert.Equal(t, modal.EditOpen, o.Session().State)
	assert.Equal(t, int64(1), o.Session().Target.ID)
}

func TestOrchestrator_EditNeedsPersistedRecord(t *testing.T) {
	o := modal.New(newMockCommitter())
	err := o.OpenEdit(groupSchema(), types.Local("tok", nil))
	assert.ErrorIs(t, err, types.ErrInvalidIdentity)
	assert.Equal(t, modal.Closed, o.Session().State)
}

func TestOrchestrator_CommitWhenClosed(t *testing.T) {
	o := modal.New(newMockCommitter())
	_, err := o.Commit(context.Background(), form.FormState{"name": "x"})
	assert.ErrorIs(t, err, modal.ErrNotOpen)

	_, err = o.Change(map[string]any{"name": "x"})
	assert.ErrorIs(t, err, modal.ErrNotOpen)
}

func TestOrchestrator_ConcurrentCommitRejected(t *testing.T) {
	m := newMockCommitter()
	m.block = make(chan struct{})
	o := modal.New(m)
	require.NoError(t, o.OpenCreate(groupSchema(), nil))

	submitting := make(chan struct{})
	o.OnChange(func(s modal.Session) {
		if s.Submitting {
			close(submitting)
		}
	})

	done := make(chan error, 1)
	go func() {
		_, err := o.Commit(context.Background(), form.FormState{"name": "a"})
		done <- err
	}()
	<-submitting

	_, err := o.Commit(context.Background(), form.FormState{"name": "a"})
	assert.ErrorIs(t, err, modal.ErrCommitInFlight)

	close(m.block)
	require.NoError(t, <-done)
	assert.Len(t, m.creates, 1)
}

func TestOrchestrator_CancelDuringCommit(t *testing.T) {
	m := newMockCommitter()
	m.block = make(chan struct{})
	o := modal.New(m)
	require.NoError(t, o.OpenCreate(groupSchema(), nil))

	submitting := make(chan struct{})
	o.OnChange(func(s modal.Session) {
		if s.Submitting {
			close(submitting)
		}
	})
	done := make(chan error, 1)
	go func() {
		_, err := o.Commit(context.Background(), form.FormState{"name": "a"})
		done <- err
	}()
	<-submitting

	o.Cancel()
	require.NoError(t, o.OpenEdit(groupSchema(), types.Persisted(3, map[string]any{"name": "c"})))

	close(m.block)
	require.NoError(t, <-done)

	// the later edit session is untouched by the earlier commit
	s := o.Session()
	assert.Equal(t, modal.EditOpen, s.State)
	assert.Equal(t, int64(3), s.Target.ID)
	assert.Equal(t, 1, m.refetches)
}

func TestOrchestrator_ChangeAndResolve(t *testing.T) {
	o := modal.New(newMockCommitter())
	schema := func(v form.FormState) []form.FieldDescriptor {
		descs := []form.FieldDescriptor{{Name: "sinkType", Type: form.TypeRadio, InitialValue: "HIVE"}}
		if v["sinkType"] == "KAFKA" {
			descs = append(descs, form.FieldDescriptor{Name: "topic", Type: form.TypeInput})
		}
		return descs
	}
	require.NoError(t, o.OpenCreate(schema, nil))

	resolved, err := o.Resolve()
	require.NoError(t, err)
	assert.Len(t, resolved, 1)

	values, err := o.Change(map[string]any{"sinkType": "KAFKA"})
	require.NoError(t, err)
	assert.Equal(t, "KAFKA", values["sinkType"])

	resolved, err = o.Resolve()
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	assert.Equal(t, "topic", resolved[1].Name)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", modal.Closed.String())
	assert.Equal(t, "create", modal.CreateOpen.String())
	assert.Equal(t, "edit", modal.EditOpen.String())
}
