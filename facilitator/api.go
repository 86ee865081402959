// Copyright 2025 The go-glue Authors
// This file is part of the go-glue library.
//
// The go-glue library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-glue library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-glue library. If not, see <http://www.gnu.org/licenses/>.

package facilitator

import (
	"encoding/json"
	"math/big"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/probeum/go-glue/common"
	"github.com/probeum/go-glue/common/math"
	"github.com/probeum/go-glue/core/typeddata"
	"github.com/probeum/go-glue/core/types"
	"github.com/probeum/go-glue/discovery"
	"github.com/probeum/go-glue/log"
	"github.com/probeum/go-glue/params"
	"github.com/probeum/go-glue/registry"
	"github.com/rs/cors"
)

// maxRequestSize bounds request bodies. Authorizations are a few hundred
// bytes, anything larger is abuse.
const maxRequestSize = 1 << 16

// Registries bundles the per-network registry clients the API serves.
type Registries struct {
	Identity   *registry.Identity
	Reputation *registry.Reputation
}

// Server is the facilitator's HTTP surface.
type Server struct {
	fac        *Facilitator
	registries map[string]Registries
	crawler    *discovery.Crawler
	log        log.Logger
}

// NewServer wires the HTTP surface. crawler may be nil when discovery is
// disabled; registries may omit networks that only settle payments.
func NewServer(fac *Facilitator, registries map[string]Registries, crawler *discovery.Crawler) *Server {
	if registries == nil {
		registries = make(map[string]Registries)
	}
	return &Server{
		fac:        fac,
		registries: registries,
		crawler:    crawler,
		log:        log.New("module", "api"),
	}
}

// Handler returns the routed handler with CORS applied. Agents call the
// facilitator from anywhere, so the policy is origin-open but method-tight.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.POST("/verify", s.withLog(s.handleVerify))
	router.POST("/settle", s.withLog(s.handleSettle))
	router.GET("/supported", s.withLog(s.handleSupported))
	router.GET("/health", s.withLog(s.handleHealth))
	router.GET("/identity/:network/:id", s.withLog(s.handleIdentity))
	router.GET("/reputation/:network/:id", s.withLog(s.handleReputation))
	router.POST("/feedback", s.withLog(s.handleFeedback))
	router.GET("/discovery/agents", s.withLog(s.handleDiscovery))

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(router)
}

// withLog tags every request with an id and logs its outcome.
func (s *Server) withLog(h func(http.ResponseWriter, *http.Request, httprouter.Params, log.Logger)) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		reqID := uuid.New().String()[:8]
		lg := s.log.New("req", reqID)
		start := time.Now()
		lg.Debug("Request received", "method", r.Method, "path", r.URL.Path)
		h(w, r, ps, lg)
		lg.Debug("Request done", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	}
}

// errorBody is the wire shape of every failure: a stable machine-parseable
// kind plus a human message.
type errorBody struct {
	Error   types.ErrorKind `json:"error"`
	Message string          `json:"message"`
}

// kindStatus maps error kinds onto HTTP statuses. Settlement-refusal kinds
// use 402 in the x402 style; the caller branches on the kind, not the
// status.
func kindStatus(kind types.ErrorKind) int {
	switch kind {
	case types.KindMalformedRequest, types.KindUnsupportedChain:
		return http.StatusBadRequest
	case types.KindAgentNotFound:
		return http.StatusNotFound
	case types.KindUnauthorizedRater:
		return http.StatusForbidden
	case types.KindSettlementUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusPaymentRequired
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	kind := types.KindOf(err)
	writeJSON(w, kindStatus(kind), errorBody{Error: kind, Message: err.Error()})
}

// wireDomain is the optional EIP-712 domain echo in verify/settle requests,
// used to turn wrong-chain signatures into DomainMismatch diagnostics.
type wireDomain struct {
	Name              string                `json:"name"`
	Version           string                `json:"version"`
	ChainID           *math.HexOrDecimal256 `json:"chainId"`
	VerifyingContract common.Address        `json:"verifyingContract"`
}

func (d *wireDomain) domain() *typeddata.Domain {
	if d == nil {
		return nil
	}
	chainID := new(big.Int)
	if d.ChainID != nil {
		chainID = (*big.Int)(d.ChainID)
	}
	return &typeddata.Domain{
		Name:              d.Name,
		Version:           d.Version,
		ChainID:           chainID,
		VerifyingContract: d.VerifyingContract,
	}
}

// paymentRequest is the body of /verify and /settle.
type paymentRequest struct {
	Network       string                      `json:"network"`
	Authorization *types.PaymentAuthorization `json:"authorization"`
	Domain        *wireDomain                 `json:"domain,omitempty"`
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestSize))
	if err := dec.Decode(v); err != nil {
		return types.WrapError(types.KindMalformedRequest, "undecodable request body", err)
	}
	return nil
}

func decodePayment(r *http.Request) (*paymentRequest, error) {
	var req paymentRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if req.Authorization == nil {
		return nil, types.NewError(types.KindMalformedRequest, "missing authorization")
	}
	return &req, nil
}

// verifyResponse mirrors the x402 verify result: failures are carried in
// the 200 body so callers distinguish "checked and invalid" from transport
// problems.
type verifyResponse struct {
	IsValid bool            `json:"isValid"`
	Payer   *common.Address `json:"payer,omitempty"`
	Error   types.ErrorKind `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request, _ httprouter.Params, lg log.Logger) {
	req, err := decodePayment(r)
	if err != nil {
		writeError(w, err)
		return
	}
	payer, err := s.fac.Verify(r.Context(), req.Network, req.Authorization, req.Domain.domain())
	if err != nil {
		kind := types.KindOf(err)
		if kind == types.KindSettlementUnavailable || kind == types.KindMalformedRequest {
			writeError(w, err)
			return
		}
		lg.Debug("Verification rejected", "network", req.Network, "kind", kind)
		writeJSON(w, http.StatusOK, verifyResponse{IsValid: false, Error: kind, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{IsValid: true, Payer: &payer})
}

// settleResponse wraps the receipt of a confirmed settlement.
type settleResponse struct {
	Success bool                     `json:"success"`
	Receipt *types.SettlementReceipt `json:"receipt"`
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request, _ httprouter.Params, lg log.Logger) {
	req, err := decodePayment(r)
	if err != nil {
		writeError(w, err)
		return
	}
	receipt, err := s.fac.Settle(r.Context(), req.Network, req.Authorization, req.Domain.domain())
	if err != nil {
		lg.Info("Settlement refused", "network", req.Network, "kind", types.KindOf(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settleResponse{Success: true, Receipt: receipt})
}

// supportedNetwork is one entry of the supported-networks listing.
type supportedNetwork struct {
	Network      string                `json:"network"`
	ChainID      *math.HexOrDecimal256 `json:"chainId"`
	Token        common.Address        `json:"token"`
	TokenName    string                `json:"tokenName"`
	TokenVersion string                `json:"tokenVersion"`
}

func (s *Server) handleSupported(w http.ResponseWriter, _ *http.Request, _ httprouter.Params, _ log.Logger) {
	configs := s.fac.Networks()
	out := make([]supportedNetwork, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, supportedNetwork{
			Network:      cfg.Name,
			ChainID:      (*math.HexOrDecimal256)(cfg.ChainID),
			Token:        cfg.Token,
			TokenName:    cfg.TokenName,
			TokenVersion: cfg.TokenVersion,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Network < out[j].Network })
	writeJSON(w, http.StatusOK, map[string]interface{}{"networks": out})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params, _ log.Logger) {
	names := make([]string, 0, len(s.fac.networks))
	for name := range s.fac.networks {
		names = append(names, name)
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"version":  params.Version,
		"networks": names,
	})
}

// handleIdentity resolves :id as a numeric agent id, a 0x address, or a
// registered domain name.
func (s *Server) handleIdentity(w http.ResponseWriter, r *http.Request, ps httprouter.Params, _ log.Logger) {
	regs, ok := s.registries[ps.ByName("network")]
	if !ok || regs.Identity == nil {
		writeError(w, types.Errorf(types.KindUnsupportedChain, "network %q is not configured", ps.ByName("network")))
		return
	}
	var (
		agent *types.AgentIdentity
		err   error
		raw   = ps.ByName("id")
	)
	switch {
	case common.IsHexAddress(raw):
		agent, err = regs.Identity.ResolveByAddress(r.Context(), common.HexToAddress(raw))
	case isDecimal(raw):
		id, _ := strconv.ParseUint(raw, 10, 64)
		agent, err = regs.Identity.ResolveByID(r.Context(), id)
	default:
		agent, err = regs.Identity.ResolveByDomain(r.Context(), raw)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) < 0
}

// reputationResponse reports both pairwise ratings between :id (as client)
// and the peer (as server); absent ratings are null.
type reputationResponse struct {
	ClientID     uint64 `json:"clientId"`
	ServerID     uint64 `json:"serverId"`
	ServerRating *uint8 `json:"serverRating"`
	ClientRating *uint8 `json:"clientRating"`
}

func (s *Server) handleReputation(w http.ResponseWriter, r *http.Request, ps httprouter.Params, _ log.Logger) {
	regs, ok := s.registries[ps.ByName("network")]
	if !ok || regs.Reputation == nil {
		writeError(w, types.Errorf(types.KindUnsupportedChain, "network %q is not configured", ps.ByName("network")))
		return
	}
	clientID, err := strconv.ParseUint(ps.ByName("id"), 10, 64)
	if err != nil {
		writeError(w, types.NewError(types.KindMalformedRequest, "agent id must be numeric"))
		return
	}
	serverID, err := strconv.ParseUint(r.URL.Query().Get("peer"), 10, 64)
	if err != nil {
		writeError(w, types.NewError(types.KindMalformedRequest, "peer query parameter must be a numeric agent id"))
		return
	}
	resp := reputationResponse{ClientID: clientID, ServerID: serverID}
	if score, ok, err := regs.Reputation.ServerRating(r.Context(), clientID, serverID); err != nil {
		writeError(w, err)
		return
	} else if ok {
		resp.ServerRating = &score
	}
	if score, ok, err := regs.Reputation.ClientRating(r.Context(), clientID, serverID); err != nil {
		writeError(w, err)
		return
	} else if ok {
		resp.ClientRating = &score
	}
	writeJSON(w, http.StatusOK, resp)
}

// feedbackRequest is the body of /feedback. The rater is the facilitator's
// own agent identity; the registry contract decides whether that identity
// may rate the subject.
type feedbackRequest struct {
	Network        string                  `json:"network"`
	Direction      types.FeedbackDirection `json:"direction"`
	SubjectID      uint64                  `json:"subjectId"`
	Score          uint8                   `json:"score"`
	FeedbackAuthID *common.Hash            `json:"feedbackAuthId,omitempty"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request, _ httprouter.Params, lg log.Logger) {
	var req feedbackRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	regs, ok := s.registries[req.Network]
	if !ok || regs.Reputation == nil {
		writeError(w, types.Errorf(types.KindUnsupportedChain, "network %q is not configured", req.Network))
		return
	}
	var authID common.Hash
	if req.FeedbackAuthID != nil {
		authID = *req.FeedbackAuthID
	}
	txHash, err := regs.Reputation.Submit(r.Context(), req.Direction, req.SubjectID, req.Score, authID)
	if err != nil {
		lg.Info("Feedback refused", "network", req.Network, "kind", types.KindOf(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"txHash": txHash})
}

func (s *Server) handleDiscovery(w http.ResponseWriter, _ *http.Request, _ httprouter.Params, _ log.Logger) {
	if s.crawler == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"agents": []discovery.Card{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"agents": s.crawler.Agents()})
}
