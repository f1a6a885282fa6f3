// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/z5labs/beacon/http/httpotel"
	"github.com/z5labs/beacon/pkg/slogfield"
)

type order struct {
	ID       string `json:"id"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

var errOrderExists = errors.New("order already exists")

type store struct {
	mu     sync.Mutex
	orders map[string]order
}

func newStore() *store {
	return &store{orders: make(map[string]order)}
}

func (s *store) get(id string) (order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	return o, ok
}

func (s *store) put(o order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return errOrderExists
	}
	s.orders[o.ID] = o
	return nil
}

type inventory interface {
	Reserve(ctx context.Context, sku string, quantity int) error
}

type inventoryClient struct {
	baseURL string
	client  *http.Client
}

// UnexpectedStatusError
type UnexpectedStatusError struct {
	Status int
}

func (e UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected status from inventory: %d", e.Status)
}

func (c *inventoryClient) Reserve(ctx context.Context, sku string, quantity int) error {
	u, err := url.JoinPath(c.baseURL, "reservations", sku)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return err
	}
	q := req.URL.Query()
	q.Set("quantity", fmt.Sprint(quantity))
	req.URL.RawQuery = q.Encode()

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return UnexpectedStatusError{Status: resp.StatusCode}
	}
	return nil
}

type handlers struct {
	store     *store
	inventory inventory
}

func newMux(s *store, inv inventory) *http.ServeMux {
	h := &handlers{store: s, inventory: inv}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders/{id}", h.getOrder)
	mux.HandleFunc("POST /orders", h.placeOrder)
	mux.HandleFunc("GET /orders/{id}/invoice", h.invoice)
	return mux
}

func (h *handlers) getOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.store.get(r.PathValue("id"))
	if !ok {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *handlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var o order
	err := json.NewDecoder(r.Body).Decode(&o)
	if err != nil || o.ID == "" || o.Quantity <= 0 {
		http.Error(w, "malformed order", http.StatusBadRequest)
		return
	}

	if h.inventory != nil {
		err = h.inventory.Reserve(ctx, o.SKU, o.Quantity)
		if err != nil {
			slog.ErrorContext(ctx, "failed to reserve inventory", slogfield.String("sku", o.SKU), slogfield.Error(err))
			httpotel.RecordError(ctx, err)
			http.Error(w, "inventory unavailable", http.StatusBadGateway)
			return
		}
	}

	err = h.store.put(o)
	if errors.Is(err, errOrderExists) {
		httpotel.RecordError(ctx, err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	slog.InfoContext(ctx, "placed order", slogfield.String("order_id", o.ID))
	writeJSON(w, http.StatusCreated, o)
}

// Invoices are rendered by another service which this one has
// no client for yet.
func (h *handlers) invoice(w http.ResponseWriter, r *http.Request) {
	panic(fmt.Sprintf("no invoice renderer for order %s", r.PathValue("id")))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
