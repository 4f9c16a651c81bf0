package http

import (
	"net/http"

	"github.com/mauv0809/courtmatch/internal/lifecycle"
)

type Server struct {
	Service        *lifecycle.Service
	MetricsHandler http.Handler
	Router         *http.ServeMux
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type applyRequest struct {
	GuestName *string `json:"guest_name,omitempty"`
}

type confirmRequest struct {
	ApplicationID string `json:"application_id"`
}

type reportRequest struct {
	Score    string `json:"score"`
	Disputed bool   `json:"disputed"`
}

type resolveRequest struct {
	Resolution string `json:"resolution"`
	Score      string `json:"score,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}
