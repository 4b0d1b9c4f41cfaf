package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"club-recruitment-service/internal/domain"
	"club-recruitment-service/internal/logger"
)

const (
	codeUnauthenticated = "UNAUTHENTICATED"
	codeInternal        = "INTERNAL"
)

type errorResponse struct {
	Success bool     `json:"success"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type dataResponse struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data"`
	Pagination *pagination `json:"pagination,omitempty"`
}

type pagination struct {
	Page     int32 `json:"page"`
	PageSize int32 `json:"page_size"`
	Total    int32 `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, dataResponse{Success: true, Data: data})
}

func writePage(w http.ResponseWriter, data any, page, pageSize, total int32) {
	page, pageSize = domain.NormalizePage(page, pageSize)
	writeJSON(w, http.StatusOK, dataResponse{
		Success:    true,
		Data:       data,
		Pagination: &pagination{Page: page, PageSize: pageSize, Total: total},
	})
}

// writeError maps domain errors onto HTTP statuses. Anything that is not a
// domain error is reported as an internal error without its message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: codeInternal, Message: "internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch de.Code {
	case domain.ErrorCodeValidation:
		status = http.StatusBadRequest
	case domain.ErrorCodePermissionDenied:
		status = http.StatusForbidden
	case domain.ErrorCodeNotFound:
		status = http.StatusNotFound
	case domain.ErrorCodeConflict:
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, status, errorResponse{Code: codeInternal, Message: "internal server error"})
		return
	}
	writeJSON(w, status, errorResponse{Code: string(de.Code), Message: de.Message, Details: de.Details})
}

func writeUnauthenticated(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{Code: codeUnauthenticated, Message: message})
}
