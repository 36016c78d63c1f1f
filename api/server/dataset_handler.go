package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"medmarket/core/catalog"
	"medmarket/core/ledger"
	"medmarket/core/validation"
)

type validationResponse struct {
	OK     bool              `json:"ok"`
	Error  string            `json:"error"`
	Fields validation.Errors `json:"fields"`
}

type searchResponse struct {
	catalog.Page
	Types []string `json:"types"`
}

// parseQuery maps the marketplace filter query string onto a catalog query.
func parseQuery(r *http.Request) (catalog.Query, error) {
	v := r.URL.Query()
	q := catalog.Query{
		Text:  v.Get("q"),
		Types: v["type"],
	}
	var err error
	if s := v.Get("maxPrice"); s != "" {
		if q.MaxPrice, err = strconv.ParseFloat(s, 64); err != nil || q.MaxPrice < 0 {
			return q, errors.New("invalid maxPrice")
		}
	}
	if s := v.Get("minRating"); s != "" {
		if q.MinRating, err = strconv.ParseFloat(s, 64); err != nil || q.MinRating < 0 || q.MinRating > 5 {
			return q, errors.New("invalid minRating")
		}
	}
	if s := v.Get("verified"); s != "" {
		if q.VerifiedOnly, err = strconv.ParseBool(s); err != nil {
			return q, errors.New("invalid verified")
		}
	}
	if s := v.Get("page"); s != "" {
		if q.Page, err = strconv.Atoi(s); err != nil || q.Page < 1 {
			return q, errors.New("invalid page")
		}
	}
	return q, nil
}

func (s *Server) handleSearchDatasets(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Page: s.catalog.Search(q), Types: s.catalog.Types()})
}

func (s *Server) handleDatasetTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"types": s.catalog.Types()})
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	d, ok := s.catalog.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, catalog.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handlePublishDataset validates an upload listing and adds it to the catalog
// under the patient's wallet.
func (s *Server) handlePublishDataset(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	listing, err := s.validator.ValidatePayload(body)
	if err != nil {
		var fields validation.Errors
		if errors.As(err, &fields) {
			writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Error: "listing rejected", Fields: fields})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user := currentUser(r.Context())
	d, err := s.catalog.Publish(listing, user.WalletAddress)
	if err != nil {
		s.log.Error("[API] publishing dataset failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handlePurchaseDataset(w http.ResponseWriter, r *http.Request) {
	d, ok := s.catalog.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, catalog.ErrNotFound.Error())
		return
	}
	res := s.ledger.PurchaseDataset(r.Context(), d.ID, decimal.NewFromFloat(d.Price), d.Seller)
	if !res.Success {
		status := http.StatusBadRequest
		if res.Error == ledger.ErrTransactionFailed {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, res)
		return
	}
	if err := s.catalog.RecordPurchase(d.ID); err != nil {
		s.log.Warn("[API] purchase count not updated", "dataset", d.ID, "err", err)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleVerifyDataset(w http.ResponseWriter, r *http.Request) {
	d, ok := s.catalog.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, catalog.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.VerifyDataIntegrity(r.Context(), d.DataHash))
}

// handleMyDatasets lists the patient's own listings.
func (s *Server) handleMyDatasets(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	writeJSON(w, http.StatusOK, map[string][]catalog.Dataset{"datasets": s.catalog.BySeller(user.WalletAddress)})
}

func (s *Server) handleDatasetTransactions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.catalog.Get(id); !ok {
		writeError(w, http.StatusNotFound, catalog.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": s.ledger.DatasetTransactions(id)})
}
