package memory

import (
	"testing"

	"ai-assistant-client/pkg/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionKeepsInsertionOrder(t *testing.T) {
	s := NewStore()
	s.Files.Save("b", api.File{ID: "b"})
	s.Files.Save("a", api.File{ID: "a"})
	s.Files.Save("c", api.File{ID: "c"})
	// Saving again keeps the original position.
	s.Files.Save("b", api.File{ID: "b", Name: "renamed"})

	files := s.Files.List(nil)
	require.Len(t, files, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{files[0].ID, files[1].ID, files[2].ID})
	assert.Equal(t, "renamed", files[0].Name)
}

func TestCollectionUpdateAndDelete(t *testing.T) {
	s := NewStore()
	_, ok := s.Files.Update("missing", func(f api.File) api.File { return f })
	assert.False(t, ok)

	s.Files.Save("a", api.File{ID: "a", Size: 1})
	updated, ok := s.Files.Update("a", func(f api.File) api.File {
		f.Size++
		return f
	})
	require.True(t, ok)
	assert.Equal(t, int64(2), updated.Size)

	assert.True(t, s.Files.Delete("a"))
	assert.False(t, s.Files.Delete("a"))
	_, found := s.Files.Get("a")
	assert.False(t, found)
}

func TestSessionRepository(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"s1", "s2", "s3"} {
		assistant := "a"
		if id == "s2" {
			assistant = "other"
		}
		s.Sessions.Save(id, SessionRecord{AssistantID: assistant, Session: api.Session{SessionSparse: api.SessionSparse{ID: id}}})
	}

	sessions := s.Sessions.FindByAssistant("a")
	require.Len(t, sessions, 2)
	assert.Equal(t, "s3", sessions[0].ID)
	assert.Equal(t, "s1", sessions[1].ID)

	_, ok := s.Sessions.AppendMessage("s1", api.Message{ID: "m1"})
	require.True(t, ok)
	_, ok = s.Sessions.AppendMessage("s1", api.Message{ID: "m2"})
	require.True(t, ok)
	rec, _ := s.Sessions.Get("s1")
	assert.Len(t, rec.Messages, 2)
}

func TestSeed(t *testing.T) {
	s := NewStore()
	Seed(s)

	_, ok := s.Assistants.Get(DefaultAssistantID)
	assert.True(t, ok)
	assert.Len(t, s.Spaces.List(nil), 2)
	assert.Len(t, s.Collections.List(InSpace(TeamSpaceID)), 1)
	assert.Equal(t, 3, s.Limits().Attachments.MaxInQuestion)
}
