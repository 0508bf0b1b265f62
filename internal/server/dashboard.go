package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func registerDashboard(api huma.API, h *handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "dashboard-summary",
		Method:      http.MethodGet,
		Path:        "/dashboard/summary",
		Summary:     "Active work, revisions, overdue count and averages",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SummaryResponse `json:"body"`
	}, error) {
		sum, err := h.stats.Summary(ctx)
		if err != nil {
			if !h.fallback(ctx, err) {
				return nil, h.handleError(err)
			}
			return &struct {
				Body SummaryResponse `json:"body"`
			}{Body: SummaryResponse{Summary: h.demo().Summary(h.now()), Fallback: true}}, nil
		}
		return &struct {
			Body SummaryResponse `json:"body"`
		}{Body: SummaryResponse{Summary: sum}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dashboard-overdue",
		Method:      http.MethodGet,
		Path:        "/dashboard/overdue",
		Summary:     "Overdue projects, earliest due first",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ProjectListResponse `json:"body"`
	}, error) {
		items, err := h.stats.Overdue(ctx)
		if err != nil {
			if !h.fallback(ctx, err) {
				return nil, h.handleError(err)
			}
			return &struct {
				Body ProjectListResponse `json:"body"`
			}{Body: ProjectListResponse{Projects: nonNilSlice(h.demo().Overdue(h.now())), Fallback: true}}, nil
		}
		return &struct {
			Body ProjectListResponse `json:"body"`
		}{Body: ProjectListResponse{Projects: nonNilSlice(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dashboard-workload",
		Method:      http.MethodGet,
		Path:        "/dashboard/workload",
		Summary:     "Open projects per editor by status",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body WorkloadResponse `json:"body"`
	}, error) {
		w, err := h.stats.Workload(ctx)
		if err != nil {
			if !h.fallback(ctx, err) {
				return nil, h.handleError(err)
			}
			return &struct {
				Body WorkloadResponse `json:"body"`
			}{Body: WorkloadResponse{Workload: h.demo().Workload(), Fallback: true}}, nil
		}
		return &struct {
			Body WorkloadResponse `json:"body"`
		}{Body: WorkloadResponse{Workload: w}}, nil
	})
}
