package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/roofsolar/internal/model"
	"github.com/sells-group/roofsolar/internal/proposal"
	"github.com/sells-group/roofsolar/internal/store"
)

type proposalBody struct {
	proposal.Request
	Label string `json:"label,omitempty"`
}

type sensitivityBody struct {
	proposal.Request
	PriceDelta float64 `json:"price_delta"`
	UsageDelta float64 `json:"usage_delta"`
}

// proposalResponse always carries "result"; it is null on failure.
type proposalResponse struct {
	ID     string                `json:"id,omitempty"`
	Result *model.ProposalResult `json:"result"`
	Error  string                `json:"error,omitempty"`
	Fields []proposal.FieldError `json:"fields,omitempty"`
}

// decodeProposalBody decodes a proposal request strictly: malformed JSON and
// unknown keys are rejected with the null-result response shape.
func decodeProposalBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		resp := proposalResponse{Error: proposal.MsgInvalidInput}
		if name, ok := unknownField(err); ok {
			resp.Fields = []proposal.FieldError{{Field: name, Rule: "unknown"}}
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return false
	}
	return true
}

// unknownField extracts the key from encoding/json's unknown field error.
func unknownField(err error) (string, bool) {
	const prefix = "json: unknown field "
	msg := err.Error()
	if !strings.HasPrefix(msg, prefix) {
		return "", false
	}
	name, uerr := strconv.Unquote(strings.TrimPrefix(msg, prefix))
	if uerr != nil {
		return "", false
	}
	return name, true
}

func (s *Server) createProposal(w http.ResponseWriter, r *http.Request) {
	var body proposalBody
	if !decodeProposalBody(w, r, &body) {
		return
	}

	res, err := s.engine.Compute(body.Request)
	if err != nil {
		s.computeFailure(w, err)
		return
	}

	if !s.shouldPersist(r) {
		writeJSON(w, http.StatusOK, proposalResponse{Result: res})
		return
	}
	rec, err := s.store.CreateProposal(r.Context(), body.Label, *res)
	if err != nil {
		s.storeFailure(w, err, "create proposal")
		return
	}
	writeJSON(w, http.StatusCreated, proposalResponse{ID: rec.ID, Result: res})
}

func (s *Server) sensitivity(w http.ResponseWriter, r *http.Request) {
	var body sensitivityBody
	if !decodeProposalBody(w, r, &body) {
		return
	}
	if body.PriceDelta <= -1 || body.UsageDelta <= -1 {
		writeJSON(w, http.StatusUnprocessableEntity, proposalResponse{
			Error:  proposal.MsgInvalidInput,
			Fields: []proposal.FieldError{{Field: "price_delta|usage_delta", Rule: "gt", Param: "-1"}},
		})
		return
	}

	res, err := s.engine.Sensitivity(body.Request, body.PriceDelta, body.UsageDelta)
	if err != nil {
		s.computeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proposalResponse{Result: res})
}

func (s *Server) computeFailure(w http.ResponseWriter, err error) {
	var ve *proposal.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusUnprocessableEntity, proposalResponse{
			Error:  proposal.MsgInvalidInput,
			Fields: ve.Fields,
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, proposalResponse{Error: proposal.Message(err)})
}

func (s *Server) getProposal(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	rec, err := s.store.GetProposal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeFailure(w, err, "get proposal")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listProposals(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	recs, err := s.store.ListProposals(r.Context(), store.ProposalFilter{
		Label:  r.URL.Query().Get("label"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	})
	if err != nil {
		s.storeFailure(w, err, "list proposals")
		return
	}
	if recs == nil {
		recs = []model.ProposalRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"proposals": recs})
}
