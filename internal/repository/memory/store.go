package memory

import (
	"sync"
	"sync/atomic"

	"ai-assistant-client/pkg/api"
)

type PromptRecord struct {
	AssistantID string
	api.Prompt
}

type TemplateRecord struct {
	Kind api.TemplateKind
	api.Template
}

// SpaceItem is an app, service, collection or website living in a space.
type SpaceItem struct {
	SpaceID string
	api.Named
}

// Store holds all state of the dev backend. Nothing is persisted.
type Store struct {
	seq atomic.Uint64

	Assistants  *Collection[api.Assistant]
	Sessions    *SessionRepository
	Files       *Collection[api.File]
	Jobs        *Collection[api.Job]
	Spaces      *Collection[api.Space]
	Apps        *Collection[SpaceItem]
	Services    *Collection[SpaceItem]
	Collections *Collection[SpaceItem]
	Websites    *Collection[SpaceItem]
	Prompts     *Collection[PromptRecord]
	Templates   *Collection[TemplateRecord]

	limitsMu sync.RWMutex
	limits   api.Limits
}

func NewStore() *Store {
	s := &Store{}
	s.Assistants = NewCollection[api.Assistant](&s.seq)
	s.Sessions = NewSessionRepository(&s.seq)
	s.Files = NewCollection[api.File](&s.seq)
	s.Jobs = NewCollection[api.Job](&s.seq)
	s.Spaces = NewCollection[api.Space](&s.seq)
	s.Apps = NewCollection[SpaceItem](&s.seq)
	s.Services = NewCollection[SpaceItem](&s.seq)
	s.Collections = NewCollection[SpaceItem](&s.seq)
	s.Websites = NewCollection[SpaceItem](&s.seq)
	s.Prompts = NewCollection[PromptRecord](&s.seq)
	s.Templates = NewCollection[TemplateRecord](&s.seq)
	return s
}

func (s *Store) Limits() api.Limits {
	s.limitsMu.RLock()
	defer s.limitsMu.RUnlock()
	return s.limits
}

func (s *Store) SetLimits(l api.Limits) {
	s.limitsMu.Lock()
	s.limits = l
	s.limitsMu.Unlock()
}

// InSpace selects items of one space.
func InSpace(spaceID string) func(SpaceItem) bool {
	return func(i SpaceItem) bool { return i.SpaceID == spaceID }
}
