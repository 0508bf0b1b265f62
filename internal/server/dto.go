package server

import (
	"cutroom/internal/domain"
	"cutroom/internal/engine"
	"cutroom/internal/messaging"
	"cutroom/internal/stats"
)

// Request payloads

type LoginRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password"`
}

type AccountRequest struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

type InviteRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty" enum:"admin,qc,editor"`
}

type RoleRequest struct {
	Role string `json:"role" enum:"admin,qc,editor"`
}

type CreateProjectRequest struct {
	Title          string  `json:"title"`
	ClientName     string  `json:"client_name"`
	Type           string  `json:"type"`
	DueAt          string  `json:"due_at" doc:"YYYY-MM-DD or RFC3339"`
	RawFootageURL  string  `json:"raw_footage_url"`
	Deliverables   string  `json:"deliverables" doc:"One deliverable per line or comma separated"`
	Address        *string `json:"address,omitempty"`
	Priority       *string `json:"priority,omitempty" enum:"normal,rush"`
	BrandAssetsURL *string `json:"brand_assets_url,omitempty"`
	MusicAssetsURL *string `json:"music_assets_url,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	NeedsInfo      bool    `json:"needs_info,omitempty"`
}

type DeliverableRequest struct {
	ID        string  `json:"id,omitempty"`
	Label     string  `json:"label"`
	Specs     *string `json:"specs,omitempty"`
	Completed bool    `json:"completed,omitempty"`
}

type UpdateProjectRequest struct {
	Title            *string              `json:"title,omitempty"`
	Address          *string              `json:"address,omitempty"`
	Type             *string              `json:"type,omitempty"`
	Priority         *string              `json:"priority,omitempty"`
	Notes            *string              `json:"notes,omitempty"`
	RawFootageURL    *string              `json:"raw_footage_url,omitempty"`
	BrandAssetsURL   *string              `json:"brand_assets_url,omitempty"`
	MusicAssetsURL   *string              `json:"music_assets_url,omitempty"`
	PreviewURL       *string              `json:"preview_url,omitempty"`
	FinalDeliveryURL *string              `json:"final_delivery_url,omitempty"`
	NeedsInfo        *bool                `json:"needs_info,omitempty"`
	Deliverables     []DeliverableRequest `json:"deliverables,omitempty"`
}

type AssignRequest struct {
	EditorID *string `json:"editor_id,omitempty"`
	DueAt    *string `json:"due_at,omitempty"`
}

type EditorUpdateRequest struct {
	Status     *string `json:"status,omitempty" enum:"ASSIGNED,EDITING,QC,REVISION_REQUESTED"`
	PreviewURL *string `json:"preview_url,omitempty"`
	FinalURL   *string `json:"final_url,omitempty"`
}

type QCRequest struct {
	Decision string   `json:"decision" enum:"ready,delivered,request_revision"`
	Tags     []string `json:"tags,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

type MessageRequest struct {
	Body string `json:"body"`
}

// Response payloads

type LoginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt string         `json:"expires_at" format:"date-time"`
	Profile   domain.Profile `json:"profile"`
}

type ProfileListResponse struct {
	Profiles []domain.Profile `json:"profiles"`
	Fallback bool             `json:"fallback,omitempty"`
}

type ClientListResponse struct {
	Clients []domain.Client `json:"clients"`
}

type ProjectListResponse struct {
	Projects []domain.Project `json:"projects"`
	Fallback bool             `json:"fallback,omitempty"`
}

type BoardResponse struct {
	Columns  []stats.Column `json:"columns"`
	Fallback bool           `json:"fallback,omitempty"`
}

type WorkloadResponse struct {
	stats.Workload
	Fallback bool `json:"fallback,omitempty"`
}

type SummaryResponse struct {
	stats.Summary
	Fallback bool `json:"fallback,omitempty"`
}

type MessageListResponse struct {
	Messages []domain.Message `json:"messages"`
}

type MarkReadResponse struct {
	ProjectID string `json:"project_id"`
	LastSeen  string `json:"last_seen,omitempty" format:"date-time"`
}

type InboxResponse struct {
	Threads []messaging.Thread `json:"threads"`
}

type UnreadResponse struct {
	Count int `json:"count"`
}

type ProjectDetailResponse = engine.ProjectDetail

func detailsInput(req UpdateProjectRequest) engine.DetailsInput {
	return engine.DetailsInput{
		Title:            stringOrEmpty(req.Title),
		Address:          stringOrEmpty(req.Address),
		Type:             stringOrEmpty(req.Type),
		Priority:         stringOrEmpty(req.Priority),
		Notes:            stringOrEmpty(req.Notes),
		RawFootageURL:    stringOrEmpty(req.RawFootageURL),
		BrandAssetsURL:   stringOrEmpty(req.BrandAssetsURL),
		MusicAssetsURL:   stringOrEmpty(req.MusicAssetsURL),
		PreviewURL:       stringOrEmpty(req.PreviewURL),
		FinalDeliveryURL: stringOrEmpty(req.FinalDeliveryURL),
		NeedsInfo:        req.NeedsInfo,
	}
}

func deliverableInputs(in []DeliverableRequest) []engine.DeliverableInput {
	out := make([]engine.DeliverableInput, 0, len(in))
	for _, d := range in {
		out = append(out, engine.DeliverableInput{
			ID:        d.ID,
			Label:     d.Label,
			Specs:     stringOrEmpty(d.Specs),
			Completed: d.Completed,
		})
	}
	return out
}

func createInput(req CreateProjectRequest) engine.CreateProjectInput {
	return engine.CreateProjectInput{
		Title:          req.Title,
		ClientName:     req.ClientName,
		Address:        stringOrEmpty(req.Address),
		Type:           req.Type,
		Priority:       domain.Priority(stringOrEmpty(req.Priority)),
		DueAt:          req.DueAt,
		RawFootageURL:  req.RawFootageURL,
		BrandAssetsURL: stringOrEmpty(req.BrandAssetsURL),
		MusicAssetsURL: stringOrEmpty(req.MusicAssetsURL),
		Notes:          stringOrEmpty(req.Notes),
		Deliverables:   req.Deliverables,
		NeedsInfo:      req.NeedsInfo,
	}
}

func stringOrEmpty(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
