package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"club-recruitment-service/internal/domain"
	"club-recruitment-service/internal/service"
)

type ApplicationHandler struct {
	svc service.ApplicationService
}

func NewApplicationHandler(svc service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{svc: svc}
}

type submitRequest struct {
	Answers []domain.Answer `json:"answers"`
	Message string          `json:"message"`
}

type updateSubmissionRequest struct {
	Answers []domain.Answer `json:"answers"`
	Message *string         `json:"message"`
}

type approveRequest struct {
	Role domain.MemberRole `json:"role"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w, "authorization token is not provided")
		return
	}
	applicant := service.Applicant{
		ID: claims.UserID,
		Identity: domain.Identity{
			Email:      claims.Email,
			FullName:   claims.Name,
			PictureURL: claims.Picture,
		},
	}
	app, err := h.svc.Submit(r.Context(), mux.Vars(r)["campaignId"], applicant, service.SubmissionInput{
		Answers: req.Answers,
		Message: req.Message,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, app)
}

func (h *ApplicationHandler) ListByCampaign(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := domain.ApplicationStatus(r.URL.Query().Get("status"))
	list, total, err := h.svc.ListByCampaign(r.Context(), mux.Vars(r)["campaignId"], actorID(r), status, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, list, page, pageSize, total)
}

func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	app, err := h.svc.Get(r.Context(), mux.Vars(r)["applicationId"], actorID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, app)
}

func (h *ApplicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateSubmissionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	app, err := h.svc.Update(r.Context(), mux.Vars(r)["applicationId"], actorID(r), service.SubmissionPatch{
		Answers: req.Answers,
		Message: req.Message,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, app)
}

func (h *ApplicationHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	app, err := h.svc.Withdraw(r.Context(), mux.Vars(r)["applicationId"], actorID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, app)
}

func (h *ApplicationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	app, err := h.svc.Approve(r.Context(), mux.Vars(r)["applicationId"], actorID(r), req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, app)
}

func (h *ApplicationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	app, err := h.svc.Reject(r.Context(), mux.Vars(r)["applicationId"], actorID(r), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, app)
}

func (h *ApplicationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListMine(r.Context(), actorID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, list)
}

func (h *ApplicationHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	m, err := h.svc.GetMember(r.Context(), vars["clubId"], vars["userId"], actorID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

func (h *ApplicationHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Reason == "" {
		req.Reason = r.URL.Query().Get("reason")
	}
	vars := mux.Vars(r)
	app, err := h.svc.RemoveMember(r.Context(), vars["clubId"], vars["userId"], actorID(r), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, app)
}
