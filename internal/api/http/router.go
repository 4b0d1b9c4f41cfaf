package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"club-recruitment-service/internal/security"
	"club-recruitment-service/internal/service"
)

// NewRouter builds the public API. Route names key the security levels in
// config.RouteSecurityConfig.
func NewRouter(campaigns service.CampaignService, applications service.ApplicationService, tm security.TokenManager) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationMiddleware, LoggingMiddleware, NewAuthMiddleware(tm).Handler)

	router.HandleFunc("/healthz", healthz).Methods(http.MethodGet).Name("Healthz")

	api := router.PathPrefix("/api/v1").Subrouter()
	RegisterCampaignRoutes(api, NewCampaignHandler(campaigns))
	RegisterApplicationRoutes(api, NewApplicationHandler(applications))
	return router
}

// RegisterCampaignRoutes registers the campaign endpoints
func RegisterCampaignRoutes(router *mux.Router, h *CampaignHandler) {
	router.HandleFunc("/clubs/{clubId}/campaigns", h.Create).Methods(http.MethodPost).Name("CreateCampaign")
	router.HandleFunc("/clubs/{clubId}/campaigns", h.ListByClub).Methods(http.MethodGet).Name("ListClubCampaign")
	router.HandleFunc("/campaigns", h.ListPublished).Methods(http.MethodGet).Name("ListPublishedCampaigns")
	router.HandleFunc("/campaigns/{campaignId}", h.Get).Methods(http.MethodGet).Name("GetCampaign")
	router.HandleFunc("/campaigns/{campaignId}", h.Update).Methods(http.MethodPatch).Name("UpdateCampaign")
	router.HandleFunc("/campaigns/{campaignId}", h.Delete).Methods(http.MethodDelete).Name("DeleteCampaign")
	router.HandleFunc("/campaigns/{campaignId}/publish", h.transition(h.svc.Publish)).Methods(http.MethodPost).Name("PublishCampaign")
	router.HandleFunc("/campaigns/{campaignId}/pause", h.transition(h.svc.Pause)).Methods(http.MethodPost).Name("PauseCampaign")
	router.HandleFunc("/campaigns/{campaignId}/resume", h.transition(h.svc.Resume)).Methods(http.MethodPost).Name("ResumeCampaign")
	router.HandleFunc("/campaigns/{campaignId}/complete", h.transition(h.svc.Complete)).Methods(http.MethodPost).Name("CompleteCampaign")
}

// RegisterApplicationRoutes registers the application and membership endpoints
func RegisterApplicationRoutes(router *mux.Router, h *ApplicationHandler) {
	router.HandleFunc("/campaigns/{campaignId}/applications", h.Submit).Methods(http.MethodPost).Name("SubmitApplication")
	router.HandleFunc("/campaigns/{campaignId}/applications", h.ListByCampaign).Methods(http.MethodGet).Name("ListApplications")
	router.HandleFunc("/applications/{applicationId}", h.Get).Methods(http.MethodGet).Name("GetApplication")
	router.HandleFunc("/applications/{applicationId}", h.Update).Methods(http.MethodPatch).Name("UpdateApplication")
	router.HandleFunc("/applications/{applicationId}", h.Withdraw).Methods(http.MethodDelete).Name("WithdrawApplication")
	router.HandleFunc("/applications/{applicationId}/approve", h.Approve).Methods(http.MethodPost).Name("ApproveApplication")
	router.HandleFunc("/applications/{applicationId}/reject", h.Reject).Methods(http.MethodPost).Name("RejectApplication")
	router.HandleFunc("/me/applications", h.ListMine).Methods(http.MethodGet).Name("ListMyApplications")
	router.HandleFunc("/clubs/{clubId}/members/{userId}", h.GetMember).Methods(http.MethodGet).Name("GetMember")
	router.HandleFunc("/clubs/{clubId}/members/{userId}", h.RemoveMember).Methods(http.MethodDelete).Name("RemoveMember")
}

func healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
