package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
)

type AddressService interface {
	Add(ctx context.Context, ownerID string, fields domain.AddressFields) (*domain.Address, error)
	Remove(ctx context.Context, ownerID, addressID string) error
	SetDefault(ctx context.Context, ownerID, addressID string) (*domain.Address, error)
	Update(ctx context.Context, ownerID, addressID string, patch domain.AddressPatch) (*domain.Address, error)
	Get(ctx context.Context, ownerID, addressID string) (*domain.Address, error)
	List(ctx context.Context, ownerID string) ([]domain.Address, error)
}

type AddressHandler struct {
	addresses AddressService
	timeout   time.Duration
}

func NewAddressHandler(addresses AddressService, timeout time.Duration) *AddressHandler {
	return &AddressHandler{addresses: addresses, timeout: timeout}
}

// GET /addresses
func (h *AddressHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, string(domain.ReasonUnauthorized), "missing user authentication")
		return
	}

	list, err := h.addresses.List(ctx, actor.ID)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	if list == nil {
		list = []domain.Address{}
	}
	respondJSON(w, http.StatusOK, list)
}

// GET /addresses/{address_id}
func (h *AddressHandler) GetAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, string(domain.ReasonUnauthorized), "missing user authentication")
		return
	}

	addr, err := h.addresses.Get(ctx, actor.ID, chi.URLParam(r, "address_id"))
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, addr)
}

// POST /addresses
func (h *AddressHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, string(domain.ReasonUnauthorized), "missing user authentication")
		return
	}

	var fields domain.AddressFields
	if err := decodeJSON(w, r, &fields); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body", Code: "invalid_request", Details: err.Error()})
		return
	}

	addr, err := h.addresses.Add(ctx, actor.ID, fields)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, addr)
}

// PATCH /addresses/{address_id}
func (h *AddressHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, string(domain.ReasonUnauthorized), "missing user authentication")
		return
	}

	var patch domain.AddressPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body", Code: "invalid_request", Details: err.Error()})
		return
	}

	addr, err := h.addresses.Update(ctx, actor.ID, chi.URLParam(r, "address_id"), patch)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, addr)
}

// PATCH /addresses/{address_id}/default
func (h *AddressHandler) SetDefaultAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, string(domain.ReasonUnauthorized), "missing user authentication")
		return
	}

	addr, err := h.addresses.SetDefault(ctx, actor.ID, chi.URLParam(r, "address_id"))
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, addr)
}

// DELETE /addresses/{address_id}
func (h *AddressHandler) RemoveAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, string(domain.ReasonUnauthorized), "missing user authentication")
		return
	}

	if err := h.addresses.Remove(ctx, actor.ID, chi.URLParam(r, "address_id")); err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
