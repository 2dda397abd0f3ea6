package agreement

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// Handler exposes the conversion and signing entry points over HTTP.
type Handler struct {
	conversions *ConversionService
	signings    *SigningService
	validate    *validator.Validate
}

func NewHandler(conversions *ConversionService, signings *SigningService) *Handler {
	return &Handler{
		conversions: conversions,
		signings:    signings,
		validate:    validator.New(),
	}
}

type convertResponse struct {
	AgreementID string   `json:"agreement_id"`
	SignerID    string   `json:"signer_id"`
	Invalidate  []string `json:"invalidate"`
	Degraded    []string `json:"degraded,omitempty"`
}

// POST /api/scheduled-agreements/{id}/convert
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.conversions.Convert(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, ErrScheduledNotFound) || errors.Is(err, ErrTemplateNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, convertResponse{
		AgreementID: outcome.AgreementID,
		SignerID:    outcome.SignerID,
		Invalidate:  outcome.Invalidate,
		Degraded:    outcome.Degraded,
	})
}

type signRequestBody struct {
	SignatureData   string  `json:"signature_data"`
	SignatureFileID *string `json:"signature_file_id" validate:"omitempty,uuid"`
}

type signResponse struct {
	AllSigned  bool     `json:"all_signed"`
	Invalidate []string `json:"invalidate"`
	Degraded   []string `json:"degraded,omitempty"`
}

// POST /api/agreements/{id}/signers/{signerID}/sign
func (h *Handler) Sign(w http.ResponseWriter, r *http.Request) {
	var body signRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	outcome, err := h.signings.Sign(r.Context(), SignRequest{
		AgreementID:     vars["id"],
		SignerID:        vars["signerID"],
		SignatureData:   body.SignatureData,
		SignatureFileID: body.SignatureFileID,
	})
	if err != nil {
		if errors.Is(err, ErrSignerNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, signResponse{
		AllSigned:  outcome.AllSigned,
		Invalidate: outcome.Invalidate,
		Degraded:   outcome.Degraded,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
