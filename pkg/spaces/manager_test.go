package spaces

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-assistant-client/pkg/alert"
	"ai-assistant-client/pkg/api"
	"ai-assistant-client/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSpaces struct {
	list      []api.SpaceSparse
	spaces    map[string]api.Space
	knowledge api.Knowledge
	apps      api.Applications
	err       error
	deleted   []string
	updates   []api.SpaceUpdate
}

func (f *fakeSpaces) List(context.Context) ([]api.SpaceSparse, error) {
	return f.list, f.err
}

func (f *fakeSpaces) Create(_ context.Context, name string) (*api.Space, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := api.Space{SpaceSparse: api.SpaceSparse{ID: "new", Name: name}}
	f.list = append(f.list, s.SpaceSparse)
	return &s, nil
}

func (f *fakeSpaces) Get(_ context.Context, id string) (*api.Space, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := f.spaces[id]
	return &s, nil
}

func (f *fakeSpaces) Update(_ context.Context, id string, update api.SpaceUpdate) (*api.Space, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.updates = append(f.updates, update)
	s := f.spaces[id]
	if update.Name != nil {
		s.Name = *update.Name
	}
	return &s, nil
}

func (f *fakeSpaces) Delete(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSpaces) ListApplications(context.Context, string) (*api.Applications, error) {
	return &f.apps, f.err
}

func (f *fakeSpaces) ListKnowledge(context.Context, string) (*api.Knowledge, error) {
	return &f.knowledge, f.err
}

type fakeAssistants struct {
	updates []any
}

func (f *fakeAssistants) Update(_ context.Context, id string, update any, out any) error {
	f.updates = append(f.updates, update)
	*(out.(*api.Assistant)) = api.Assistant{ID: id, CompletionModel: &api.CompletionModel{ID: "gpt"}}
	return nil
}

func space(id, name string) api.Space {
	return api.Space{SpaceSparse: api.SpaceSparse{ID: id, Name: name}}
}

func TestView(t *testing.T) {
	s := space("s1", "Team")
	s.Permissions = []api.Permission{api.PermissionEdit}
	s.Applications.Services.Items = []api.Named{{ID: "1", Name: "_intric_internal"}, {ID: "2", Name: "Summariser"}}
	s.Knowledge.Groups.Permissions = []api.Permission{api.PermissionCreate}
	s.DefaultAssistant.Permissions = []api.Permission{api.PermissionEdit}

	v := newView(s)
	assert.Equal(t, "s1", v.RouteID)
	assert.Equal(t, []api.Named{{ID: "2", Name: "Summariser"}}, v.ServiceList)

	assert.True(t, v.HasPermission(api.PermissionEdit, ResourceSpace))
	assert.False(t, v.HasPermission(api.PermissionDelete, ResourceSpace))
	assert.True(t, v.HasPermission(api.PermissionCreate, ResourceCollection))
	assert.False(t, v.HasPermission(api.PermissionCreate, ResourceWebsite))
	assert.True(t, v.HasPermission(api.PermissionEdit, ResourceDefaultAssistant))
	assert.False(t, v.HasPermission(api.PermissionEdit, Resource("unknown")))

	s.Personal = true
	assert.Equal(t, "personal", newView(s).RouteID)
}

func TestManager_UpdateSpace(t *testing.T) {
	f := &fakeSpaces{spaces: map[string]api.Space{"s1": space("s1", "Team"), "s2": space("s2", "Other")}}
	m := NewManager(Params{
		Spaces:       []api.SpaceSparse{{ID: "s1", Name: "Team"}, {ID: "s2", Name: "Other"}},
		CurrentSpace: space("s1", "Team"),
		SpaceService: f,
	})
	defer m.Close()

	renamed := "Renamed"
	_, err := m.UpdateSpace(context.Background(), api.SpaceUpdate{Name: &renamed}, "s2")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", m.AccessibleSpaces().Get()[1].Name)
	assert.Equal(t, "Team", m.CurrentSpace().Get().Name, "explicit space leaves current alone")

	_, err = m.UpdateSpace(context.Background(), api.SpaceUpdate{Name: &renamed}, "")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", m.CurrentSpace().Get().Name)
}

func TestManager_Failures(t *testing.T) {
	alerts := &alert.Recorder{}
	f := &fakeSpaces{err: errors.New("down")}
	m := NewManager(Params{CurrentSpace: space("s1", "Team"), SpaceService: f, Alerter: alerts})
	defer m.Close()

	_, err := m.CreateSpace(context.Background(), "New")
	assert.Error(t, err)
	assert.Error(t, m.DeleteSpace(context.Background(), "s1"))
	assert.Error(t, m.RefreshCurrentSpace(context.Background(), PartAll))

	assert.Equal(t, []string{"Error creating new space New", "Error deleting space s1"}, alerts.Messages())
	assert.Equal(t, "Team", m.CurrentSpace().Get().Name)
}

func TestManager_DeleteCurrentSpace(t *testing.T) {
	f := &fakeSpaces{list: []api.SpaceSparse{{ID: "s2"}}}
	deletedCurrent := false
	m := NewManager(Params{
		Spaces:           []api.SpaceSparse{{ID: "s1"}, {ID: "s2"}},
		CurrentSpace:     space("s1", "Team"),
		SpaceService:     f,
		OnDeletedCurrent: func() { deletedCurrent = true },
	})
	defer m.Close()

	require.NoError(t, m.DeleteSpace(context.Background(), "s2"))
	assert.False(t, deletedCurrent)
	require.NoError(t, m.DeleteSpace(context.Background(), "s1"))
	assert.True(t, deletedCurrent)
	assert.Equal(t, []string{"s2", "s1"}, f.deleted)
	assert.Equal(t, []api.SpaceSparse{{ID: "s2"}}, m.AccessibleSpaces().Get())
}

func TestManager_RefreshAndWatch(t *testing.T) {
	f := &fakeSpaces{
		knowledge: api.Knowledge{Groups: api.PaginatedPermissions[api.Named]{Items: []api.Named{{ID: "g1", Name: "Docs"}}}},
		apps:      api.Applications{Assistants: api.PaginatedPermissions[api.AssistantSparse]{Items: []api.AssistantSparse{{ID: "a1"}}}},
	}
	m := NewManager(Params{CurrentSpace: space("s1", "Team"), SpaceService: f})
	defer m.Close()

	require.NoError(t, m.RefreshCurrentSpace(context.Background(), PartApplications))
	assert.Equal(t, []api.AssistantSparse{{ID: "a1"}}, m.CurrentSpace().Get().AssistantList)

	bus := events.NewBus(nil)
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Watch(ctx, bus))

	require.NoError(t, bus.Publish(events.New(events.TypeKnowledgeInvalidated, nil)))
	assert.Eventually(t, func() bool {
		return len(m.CurrentSpace().Get().CollectionList) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestManager_WatchPageDataAndDefaultAssistant(t *testing.T) {
	assistants := &fakeAssistants{}
	current := space("s1", "Team")
	current.DefaultAssistant = api.Assistant{ID: "default-1"}
	m := NewManager(Params{CurrentSpace: current, Assistants: assistants})
	defer m.Close()

	m.WatchPageData(space("s1", "Stale copy"))
	assert.Equal(t, "Team", m.CurrentSpace().Get().Name)

	require.NoError(t, m.UpdateDefaultAssistant(context.Background(), "gpt"))
	assert.Equal(t, "gpt", m.CurrentSpace().Get().DefaultAssistant.CompletionModel.ID)
	assert.Equal(t, []any{map[string]any{"completion_model": api.Ref{ID: "gpt"}}}, assistants.updates)

	m.WatchPageData(space("s9", "Elsewhere"))
	assert.Equal(t, "s9", m.CurrentSpace().Get().ID)
}
