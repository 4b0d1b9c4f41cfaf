package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"club-recruitment-service/internal/domain"
	"club-recruitment-service/internal/service"
)

type CampaignHandler struct {
	svc service.CampaignService
}

func NewCampaignHandler(svc service.CampaignService) *CampaignHandler {
	return &CampaignHandler{svc: svc}
}

type createCampaignRequest struct {
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Requirements    []string          `json:"requirements"`
	Questions       []domain.Question `json:"application_questions"`
	StartDate       time.Time         `json:"start_date"`
	EndDate         time.Time         `json:"end_date"`
	MaxApplications *int              `json:"max_applications"`
	Publish         bool              `json:"publish"`
}

type updateCampaignRequest struct {
	Title           *string                `json:"title"`
	Description     *string                `json:"description"`
	Requirements    *[]string              `json:"requirements"`
	Questions       *[]domain.Question     `json:"application_questions"`
	StartDate       *time.Time             `json:"start_date"`
	EndDate         *time.Time             `json:"end_date"`
	MaxApplications *int                   `json:"max_applications"`
	Status          *domain.CampaignStatus `json:"status"`
}

func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.svc.Create(r.Context(), mux.Vars(r)["clubId"], actorID(r), service.CampaignInput{
		Title:           req.Title,
		Description:     req.Description,
		Requirements:    req.Requirements,
		Questions:       req.Questions,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		MaxApplications: req.MaxApplications,
		Publish:         req.Publish,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, c)
}

func (h *CampaignHandler) ListByClub(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := domain.CampaignStatus(r.URL.Query().Get("status"))
	list, total, err := h.svc.ListByClub(r.Context(), mux.Vars(r)["clubId"], actorID(r), status, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, list, page, pageSize, total)
}

func (h *CampaignHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, total, err := h.svc.ListPublished(r.Context(), r.URL.Query().Get("club_id"), page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, list, page, pageSize, total)
}

func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), mux.Vars(r)["campaignId"], actorID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, c)
}

func (h *CampaignHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateCampaignRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.svc.Update(r.Context(), mux.Vars(r)["campaignId"], actorID(r), service.CampaignPatch{
		Title:           req.Title,
		Description:     req.Description,
		Requirements:    req.Requirements,
		Questions:       req.Questions,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		MaxApplications: req.MaxApplications,
		Status:          req.Status,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, c)
}

func (h *CampaignHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), mux.Vars(r)["campaignId"], actorID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type campaignOp func(ctx context.Context, campaignID, actorID string) (*domain.Campaign, error)

// transition adapts one of the status operations to a handler.
func (h *CampaignHandler) transition(op campaignOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := op(r.Context(), mux.Vars(r)["campaignId"], actorID(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, c)
	}
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return domain.NewValidationError("invalid request body", err.Error())
	}
	return nil
}

func pageParams(r *http.Request) (int32, int32, error) {
	parse := func(name string) (int32, error) {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return 0, domain.NewValidationError("invalid " + name)
		}
		return int32(n), nil
	}
	page, err := parse("page")
	if err != nil {
		return 0, 0, err
	}
	pageSize, err := parse("page_size")
	if err != nil {
		return 0, 0, err
	}
	page, pageSize = domain.NormalizePage(page, pageSize)
	return page, pageSize, nil
}
