package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleQC     Role = "qc"
	RoleEditor Role = "editor"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleQC, RoleEditor:
		return true
	}
	return false
}

type Status string

const (
	StatusNew               Status = "NEW"
	StatusAssigned          Status = "ASSIGNED"
	StatusEditing           Status = "EDITING"
	StatusQC                Status = "QC"
	StatusRevisionRequested Status = "REVISION_REQUESTED"
	StatusReady             Status = "READY"
	StatusDelivered         Status = "DELIVERED"
	StatusArchived          Status = "ARCHIVED"
	StatusOnHold            Status = "ON_HOLD"
)

// Statuses lists every workflow status in board order.
var Statuses = []Status{
	StatusNew,
	StatusAssigned,
	StatusEditing,
	StatusQC,
	StatusRevisionRequested,
	StatusReady,
	StatusDelivered,
	StatusArchived,
	StatusOnHold,
}

// ActiveStatuses are the non-terminal statuses counted as open work.
var ActiveStatuses = []Status{
	StatusNew,
	StatusAssigned,
	StatusEditing,
	StatusQC,
	StatusRevisionRequested,
	StatusReady,
	StatusOnHold,
}

// EditorStatuses are the values an assigned editor may choose between.
var EditorStatuses = []Status{
	StatusAssigned,
	StatusEditing,
	StatusQC,
	StatusRevisionRequested,
}

func (s Status) Valid() bool {
	return containsStatus(Statuses, s)
}

func (s Status) Active() bool {
	return containsStatus(ActiveStatuses, s)
}

func (s Status) EditorOwned() bool {
	return containsStatus(EditorStatuses, s)
}

// Closed reports whether the project no longer counts against SLA or queues.
func (s Status) Closed() bool {
	return s == StatusDelivered || s == StatusArchived
}

func ParseStatus(v string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(v)))
	return s, s.Valid()
}

func containsStatus(set []Status, s Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityRush   Priority = "rush"
)

func (p Priority) Valid() bool {
	return p == PriorityNormal || p == PriorityRush
}

// Activity action codes.
const (
	ActionProjectCreated      = "PROJECT_CREATED"
	ActionProjectAssigned     = "PROJECT_ASSIGNED"
	ActionEditorSubmittedQC   = "EDITOR_SUBMITTED_QC"
	ActionEditorStatusUpdated = "EDITOR_STATUS_UPDATED"
	ActionRevisionRequested   = "REVISION_REQUESTED"
	ActionProjectReady        = "PROJECT_READY"
	ActionProjectDelivered    = "PROJECT_DELIVERED"
	ActionProjectUpdated      = "PROJECT_UPDATED"
	ActionMessageSent         = "MESSAGE_SENT"
)

const (
	MessageTypeUser   = "user"
	MessageTypeSystem = "system"
)

type Project struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Address          *string  `json:"address,omitempty"`
	Type             string   `json:"type"`
	Priority         Priority `json:"priority" enum:"normal,rush"`
	Status           Status   `json:"status" enum:"NEW,ASSIGNED,EDITING,QC,REVISION_REQUESTED,READY,DELIVERED,ARCHIVED,ON_HOLD"`
	DueAt            *string  `json:"due_at,omitempty" format:"date-time"`
	AssignedEditorID *string  `json:"assigned_editor_id,omitempty"`
	ClientID         *string  `json:"client_id,omitempty"`
	ClientName       string   `json:"client_name,omitempty"`
	RawFootageURL    *string  `json:"raw_footage_url,omitempty"`
	BrandAssetsURL   *string  `json:"brand_assets_url,omitempty"`
	MusicAssetsURL   *string  `json:"music_assets_url,omitempty"`
	PreviewURL       *string  `json:"preview_url,omitempty"`
	FinalDeliveryURL *string  `json:"final_delivery_url,omitempty"`
	Notes            *string  `json:"notes,omitempty"`
	RevisionCount    int      `json:"revision_count"`
	NeedsInfo        bool     `json:"needs_info"`
	CreatedBy        string   `json:"created_by"`
	CreatedAt        string   `json:"created_at" format:"date-time"`
}

type Deliverable struct {
	ID        string  `json:"id"`
	ProjectID string  `json:"project_id"`
	Label     string  `json:"label"`
	Specs     *string `json:"specs,omitempty"`
	Completed bool    `json:"completed"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

type Revision struct {
	ID          string   `json:"id"`
	ProjectID   string   `json:"project_id"`
	RequestedBy string   `json:"requested_by"`
	EditorID    *string  `json:"editor_id,omitempty"`
	ReasonTags  []string `json:"reason_tags"`
	Notes       string   `json:"notes"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
}

type ActivityEntry struct {
	ID        int64          `json:"id"`
	ProjectID string         `json:"project_id"`
	ActorID   *string        `json:"actor_id,omitempty"`
	Action    string         `json:"action"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt string         `json:"created_at" format:"date-time"`
}

type Message struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"project_id"`
	SenderID    *string        `json:"sender_id,omitempty"`
	Body        string         `json:"body"`
	MessageType string         `json:"message_type" enum:"user,system"`
	Meta        map[string]any `json:"meta,omitempty"`
	CreatedAt   string         `json:"created_at" format:"date-time"`
}

type Profile struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	Role         Role   `json:"role" enum:"admin,qc,editor"`
	PasswordHash string `json:"-"`
	CreatedAt    string `json:"created_at" format:"date-time"`
}

type Client struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// TimeLayout is fixed width so stored timestamps sort lexically in time order.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts stored timestamps as well as any RFC3339 value.
func ParseTime(v string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(v))
}
