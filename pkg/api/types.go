package api

import (
	"encoding/json"
	"time"
)

// Ref identifies a resource by id, the shape most endpoints accept for
// relations.
type Ref struct {
	ID string `json:"id"`
}

type Permission string

const (
	PermissionRead    Permission = "read"
	PermissionCreate  Permission = "create"
	PermissionEdit    Permission = "edit"
	PermissionDelete  Permission = "delete"
	PermissionAdd     Permission = "add"
	PermissionRemove  Permission = "remove"
	PermissionPublish Permission = "publish"
)

func HasPermission(permissions []Permission, action Permission) bool {
	for _, p := range permissions {
		if p == action {
			return true
		}
	}
	return false
}

type Paginated[T any] struct {
	Items          []T     `json:"items"`
	TotalCount     int     `json:"total_count"`
	Limit          *int    `json:"limit,omitempty"`
	NextCursor     *string `json:"next_cursor,omitempty"`
	PreviousCursor *string `json:"previous_cursor,omitempty"`
	Count          int     `json:"count"`
}

// PaginatedPermissions is a list together with what the user may do with it.
type PaginatedPermissions[T any] struct {
	Items       []T          `json:"items"`
	Count       int          `json:"count"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// Pagination selects a page of a cursor-paginated list.
type Pagination struct {
	Limit  int
	Cursor string
}

func (p Pagination) query() map[string]string {
	q := map[string]string{"cursor": p.Cursor}
	if p.Limit > 0 {
		q["limit"] = itoa(p.Limit)
	}
	return q
}

type File struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Mimetype  string     `json:"mimetype"`
	Size      int64      `json:"size"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type CompletionModel struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	NickName string `json:"nickname,omitempty"`
	Family   string `json:"family,omitempty"`
	Vision   bool   `json:"vision"`
}

// Reference is a knowledge item cited by an answer.
type Reference struct {
	ID        string          `json:"id"`
	Title     string          `json:"title,omitempty"`
	GroupID   *string         `json:"group_id,omitempty"`
	WebsiteID *string         `json:"website_id,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

type Message struct {
	ID              string           `json:"id"`
	Question        string           `json:"question"`
	Answer          string           `json:"answer"`
	References      []Reference      `json:"references"`
	Files           []File           `json:"files"`
	CreatedAt       *time.Time       `json:"created_at,omitempty"`
	CompletionModel *CompletionModel `json:"completion_model,omitempty"`
}

// AssistantResponse is both a streamed partial answer and the final message
// of an ask.
type AssistantResponse struct {
	SessionID  string      `json:"session_id,omitempty"`
	ID         string      `json:"id,omitempty"`
	Question   string      `json:"question"`
	Answer     string      `json:"answer"`
	References []Reference `json:"references"`
	Files      []File      `json:"files"`
	CreatedAt  *time.Time  `json:"created_at,omitempty"`
}

type SessionSparse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type Session struct {
	SessionSparse
	Messages []Message `json:"messages"`
}

type PromptText struct {
	Text        string `json:"text"`
	Description string `json:"description"`
}

type Assistant struct {
	ID                    string           `json:"id"`
	Name                  string           `json:"name"`
	SpaceID               string           `json:"space_id,omitempty"`
	Prompt                *PromptText      `json:"prompt"`
	CompletionModel       *CompletionModel `json:"completion_model"`
	CompletionModelKwargs map[string]any   `json:"completion_model_kwargs"`
	Groups                []Ref            `json:"groups"`
	Websites              []Ref            `json:"websites"`
	Attachments           []File           `json:"attachments"`
	Published             bool             `json:"published"`
	Permissions           []Permission     `json:"permissions,omitempty"`
}

type AssistantSparse struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Published   bool         `json:"published"`
	Permissions []Permission `json:"permissions,omitempty"`
}

type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobInProgress JobStatus = "in progress"
	JobComplete   JobStatus = "complete"
	JobFailed     JobStatus = "failed"
	JobNotFound   JobStatus = "not found"
)

type Job struct {
	ID             string     `json:"id"`
	Name           *string    `json:"name,omitempty"`
	Status         JobStatus  `json:"status"`
	Task           string     `json:"task"`
	ResultLocation *string    `json:"result_location,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

// Running reports whether the job still needs polling.
func (j Job) Running() bool {
	return j.Status == JobInProgress || j.Status == JobQueued
}

type SpaceSparse struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	Personal    bool         `json:"personal"`
	Permissions []Permission `json:"permissions,omitempty"`
}

type Applications struct {
	Assistants PaginatedPermissions[AssistantSparse] `json:"assistants"`
	Services   PaginatedPermissions[Named]           `json:"services"`
	Apps       PaginatedPermissions[Named]           `json:"apps"`
}

type Knowledge struct {
	Groups   PaginatedPermissions[Named] `json:"groups"`
	Websites PaginatedPermissions[Named] `json:"websites"`
}

// Named is the sparse shape shared by apps, services, collections and websites.
type Named struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SpaceMember struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type Space struct {
	SpaceSparse
	Applications     Applications                      `json:"applications"`
	Knowledge        Knowledge                         `json:"knowledge"`
	Members          PaginatedPermissions[SpaceMember] `json:"members"`
	CompletionModels []CompletionModel                 `json:"completion_models"`
	DefaultAssistant Assistant                         `json:"default_assistant"`
}

type PromptUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

type PromptSparse struct {
	ID          string      `json:"id"`
	Description string      `json:"description"`
	IsSelected  bool        `json:"is_selected"`
	CreatedAt   *time.Time  `json:"created_at,omitempty"`
	User        *PromptUser `json:"user,omitempty"`
}

type Prompt struct {
	PromptSparse
	Text string `json:"text"`
}

type WizardStep struct {
	Required    bool   `json:"required"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type TemplateWizard struct {
	Attachments *WizardStep `json:"attachments"`
	Collections *WizardStep `json:"collections"`
}

type Template struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Wizard      TemplateWizard `json:"wizard"`
}

type AcceptedFormat struct {
	Mimetype string `json:"mimetype"`
	Size     int64  `json:"size"`
	Vision   bool   `json:"vision"`
}

type FileLimits struct {
	Formats       []AcceptedFormat `json:"formats"`
	MaxInQuestion int              `json:"max_in_question"`
	MaxTotalSize  int64            `json:"max_total_size,omitempty"`
}

type Limits struct {
	Attachments FileLimits `json:"attachments"`
	InfoBlobs   FileLimits `json:"info_blobs"`
}
