// Package httpapi exposes the registry over HTTP: read endpoints for specs,
// pools, commitments, and incentives, submit endpoints for every mutating
// operation, and a prometheus metrics surface. All responses are versioned
// JSON envelopes.
package httpapi

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainspec/registry/internal/attest"
	"github.com/chainspec/registry/internal/blobstore"
	"github.com/chainspec/registry/internal/incentive"
	"github.com/chainspec/registry/internal/registry"
	"github.com/chainspec/registry/internal/spec"
)

var ErrInvalidConfig = errors.New("httpapi: invalid config")

const maxListLimit = 500

type Config struct {
	Engine *registry.Engine

	// Blobs optionally serves revealed payload bytes. Nil disables the blob
	// endpoints.
	Blobs blobstore.Store

	// Attests optionally exposes the attestation collaborator. Nil disables
	// the attestation endpoints.
	Attests *attest.Registry

	Metrics *Metrics

	RateLimitPerIPPerSecond float64
	RateLimitBurst          int
	RateLimitMaxTrackedIPs  int

	Now func() time.Time
}

func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("%w: nil engine", ErrInvalidConfig)
	}
	if cfg.RateLimitPerIPPerSecond <= 0 {
		cfg.RateLimitPerIPPerSecond = 20
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 40
	}
	if cfg.RateLimitMaxTrackedIPs <= 0 {
		cfg.RateLimitMaxTrackedIPs = 10_000
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	h := &handler{
		cfg:     cfg,
		engine:  cfg.Engine,
		blobs:   cfg.Blobs,
		attests: cfg.Attests,
		metrics: cfg.Metrics,
		limiter: newIPRateLimiter(
			cfg.RateLimitPerIPPerSecond,
			float64(cfg.RateLimitBurst),
			cfg.RateLimitMaxTrackedIPs,
		),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /v1/config", h.handleConfig)

	mux.HandleFunc("GET /v1/specs", h.handleSpecList)
	mux.HandleFunc("GET /v1/specs/{specId}", h.handleSpecStatus)
	mux.HandleFunc("GET /v1/pool", h.handlePool)
	mux.HandleFunc("GET /v1/commitments/{commitmentId}", h.handleCommitmentStatus)
	mux.HandleFunc("GET /v1/incentives/{incentiveId}", h.handleIncentiveStatus)

	mux.HandleFunc("POST /v1/commitments", h.handleCommit)
	mux.HandleFunc("POST /v1/commitments/{commitmentId}/reveal", h.handleReveal)
	mux.HandleFunc("POST /v1/specs/{specId}/propose", h.handlePropose)
	mux.HandleFunc("POST /v1/specs/{specId}/settle", h.handleSettle)
	mux.HandleFunc("POST /v1/incentives", h.handleCreateIncentive)
	mux.HandleFunc("POST /v1/incentives/{incentiveId}/clawback", h.handleClawback)

	if h.blobs != nil {
		mux.HandleFunc("POST /v1/blobs", h.handleBlobPut)
		mux.HandleFunc("GET /v1/blobs/{contentHash}", h.handleBlobGet)
	}
	if h.attests != nil {
		mux.HandleFunc("POST /v1/attestations", h.handleAttest)
		mux.HandleFunc("GET /v1/attestations/approved", h.handleIsApproved)
	}
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Health and metrics scrapes must never be throttled.
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			mux.ServeHTTP(w, r)
			return
		}

		now := cfg.Now().UTC()
		allowed := h.limiter.Allow(clientIP(r), now)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RateLimitBurst))
		if !allowed {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate_limited")
			return
		}

		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		start := now
		mux.ServeHTTP(rec, r)
		if h.metrics != nil {
			h.metrics.observeRequest(r.Method, r.URL.Path, rec.code, time.Since(start))
		}
	}), nil
}

type handler struct {
	cfg     Config
	engine  *registry.Engine
	blobs   blobstore.Store
	attests *attest.Registry
	metrics *Metrics
	limiter *ipRateLimiter
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (h *handler) handleConfig(w http.ResponseWriter, _ *http.Request) {
	p := h.engine.Params()
	writeJSON(w, http.StatusOK, map[string]any{
		"version":                     "v1",
		"treasury":                    p.Treasury.Hex(),
		"oracleAccount":               p.OracleAccount.Hex(),
		"arbitrator":                  p.Arbitrator.Hex(),
		"minBond":                     strconv.FormatUint(p.MinBond, 10),
		"feePercent":                  p.FeePercent,
		"paused":                      p.Paused,
		"commitRevealTimeoutSeconds":  p.CommitRevealTimeoutSeconds,
		"incentiveMaxDurationSeconds": p.IncentiveMaxDurationSeconds,
		"clawbackDelaySeconds":        p.ClawbackDelaySeconds,
		"oracleTimeoutSeconds":        p.OracleTimeoutSeconds,
	})
}

func poolKeyFromQuery(r *http.Request) (incentive.PoolKey, error) {
	chainID, err := strconv.ParseUint(strings.TrimSpace(r.URL.Query().Get("chainId")), 10, 64)
	if err != nil {
		return incentive.PoolKey{}, fmt.Errorf("invalid chainId")
	}
	targetStr := strings.TrimSpace(r.URL.Query().Get("target"))
	if !common.IsHexAddress(targetStr) {
		return incentive.PoolKey{}, fmt.Errorf("invalid target")
	}
	key := incentive.PoolKey{ChainID: chainID, Target: common.HexToAddress(targetStr)}
	if err := key.Validate(); err != nil {
		return incentive.PoolKey{}, err
	}
	return key, nil
}

func (h *handler) handleSpecList(w http.ResponseWriter, r *http.Request) {
	key, err := poolKeyFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_pool_key")
		return
	}

	offset := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			writeError(w, http.StatusBadRequest, "invalid_offset")
			return
		}
	}
	limit := maxListLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > maxListLimit {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
	}

	page, total, err := h.engine.SpecsPage(r.Context(), key, offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	items := make([]map[string]any, 0, len(page))
	for _, s := range page {
		items = append(items, specJSON(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version": "v1",
		"chainId": key.ChainID,
		"target":  key.Target.Hex(),
		"offset":  offset,
		"limit":   limit,
		"total":   total,
		"specs":   items,
	})
}

func (h *handler) handleSpecStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseHash(r.PathValue("specId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_spec_id")
		return
	}
	s, err := h.engine.GetSpec(r.Context(), id)
	if err != nil {
		if errors.Is(err, registry.ErrSpecNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{
				"version": "v1",
				"found":   false,
				"specId":  id.Hex(),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	resp := specJSON(s)
	resp["version"] = "v1"
	resp["found"] = true
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handlePool(w http.ResponseWriter, r *http.Request) {
	key, err := poolKeyFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_pool_key")
		return
	}
	p, err := h.engine.Pool(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	count, err := h.engine.CountSpecs(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":      "v1",
		"chainId":      key.ChainID,
		"target":       key.Target.Hex(),
		"total":        strconv.FormatUint(p.Total, 10),
		"contributors": p.Contributors,
		"specCount":    count,
	})
}

func (h *handler) handleCommitmentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseHash(r.PathValue("commitmentId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_commitment_id")
		return
	}
	c, err := h.engine.GetCommitment(r.Context(), id)
	if err != nil {
		if errors.Is(err, registry.ErrCommitmentNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{
				"version":      "v1",
				"found":        false,
				"commitmentId": id.Hex(),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":        "v1",
		"found":          true,
		"commitmentId":   c.ID.Hex(),
		"committer":      c.Committer.Hex(),
		"target":         c.Target.Hex(),
		"chainId":        c.ChainID,
		"committedAt":    c.CommittedAt.UTC().Format(time.RFC3339),
		"revealDeadline": c.RevealDeadline.UTC().Format(time.RFC3339),
		"revealed":       c.Revealed,
		"bond":           strconv.FormatUint(c.Bond, 10),
	})
}

func (h *handler) handleIncentiveStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseHash(r.PathValue("incentiveId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_incentive_id")
		return
	}
	inc, err := h.engine.GetIncentive(r.Context(), id)
	if err != nil {
		if errors.Is(err, registry.ErrIncentiveNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{
				"version":     "v1",
				"found":       false,
				"incentiveId": id.Hex(),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	resp := incentiveJSON(inc)
	resp["version"] = "v1"
	resp["found"] = true
	writeJSON(w, http.StatusOK, resp)
}

type commitRequestBody struct {
	Caller      string `json:"caller"`
	BlindedHash string `json:"blindedHash"`
	Target      string `json:"target"`
	ChainID     uint64 `json:"chainId"`
	IncentiveID string `json:"incentiveId,omitempty"`
}

func (h *handler) handleCommit(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeJSONBody[commitRequestBody](w, r)
	if !ok {
		return
	}
	caller, err := parseAddress(body.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_caller")
		return
	}
	blinded, err := parseHash(body.BlindedHash)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_blinded_hash")
		return
	}
	target, err := parseAddress(body.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_target")
		return
	}
	var incentiveID common.Hash
	if strings.TrimSpace(body.IncentiveID) != "" {
		incentiveID, err = parseHash(body.IncentiveID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_incentive_id")
			return
		}
	}

	c, err := h.engine.Commit(r.Context(), caller, blinded, target, body.ChainID, incentiveID)
	if err != nil {
		h.writeEngineError(w, "commit", err)
		return
	}
	h.countOp("commit", "ok")
	writeJSON(w, http.StatusOK, map[string]any{
		"version":        "v1",
		"commitmentId":   c.ID.Hex(),
		"revealDeadline": c.RevealDeadline.UTC().Format(time.RFC3339),
	})
}

type revealRequestBody struct {
	Caller           string `json:"caller"`
	RevealedData     string `json:"revealedData"`
	VerificationHash string `json:"verificationHash"`
	Nonce            string `json:"nonce"`
	Bond             string `json:"bond"`
}

func (h *handler) handleReveal(w http.ResponseWriter, r *http.Request) {
	id, err := parseHash(r.PathValue("commitmentId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_commitment_id")
		return
	}
	body, ok := decodeJSONBody[revealRequestBody](w, r)
	if !ok {
		return
	}
	caller, err := parseAddress(body.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_caller")
		return
	}
	data, err := decodeHexBytes(body.RevealedData)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_revealed_data")
		return
	}
	verification, err := parseHash(body.VerificationHash)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_verification_hash")
		return
	}
	var nonce common.Hash
	if strings.TrimSpace(body.Nonce) != "" {
		nonce, err = parseHash(body.Nonce)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_nonce")
			return
		}
	}
	bond, err := parseAmount(body.Bond)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_bond")
		return
	}

	s, err := h.engine.Reveal(r.Context(), caller, id, data, verification, nonce, bond)
	if err != nil {
		h.writeEngineError(w, "reveal", err)
		return
	}

	// Archive the payload so the content hash resolves to bytes.
	if h.blobs != nil {
		if _, err := h.blobs.Put(r.Context(), data); err != nil {
			h.countOp("blob_put", "error")
		}
	}

	h.countOp("reveal", "ok")
	resp := specJSON(s)
	resp["version"] = "v1"
	writeJSON(w, http.StatusOK, resp)
}

type proposeRequestBody struct {
	Caller string `json:"caller"`
	Bond   string `json:"bond"`
}

func (h *handler) handlePropose(w http.ResponseWriter, r *http.Request) {
	id, err := parseHash(r.PathValue("specId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_spec_id")
		return
	}
	body, ok := decodeJSONBody[proposeRequestBody](w, r)
	if !ok {
		return
	}
	caller, err := parseAddress(body.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_caller")
		return
	}
	bond, err := parseAmount(body.Bond)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_bond")
		return
	}

	s, err := h.engine.Propose(r.Context(), caller, id, bond)
	if err != nil {
		h.writeEngineError(w, "propose", err)
		return
	}
	h.countOp("propose", "ok")
	resp := specJSON(s)
	resp["version"] = "v1"
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleSettle(w http.ResponseWriter, r *http.Request) {
	id, err := parseHash(r.PathValue("specId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_spec_id")
		return
	}

	res, err := h.engine.HandleResult(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, "settle", err)
		return
	}
	h.countOp("settle", "ok")
	writeJSON(w, http.StatusOK, map[string]any{
		"version":  "v1",
		"specId":   res.Spec.ID.Hex(),
		"status":   res.Spec.Status.String(),
		"accepted": res.Accepted,
		"payout":   strconv.FormatUint(res.Payout, 10),
		"fee":      strconv.FormatUint(res.Fee, 10),
	})
}

type createIncentiveRequestBody struct {
	Caller          string `json:"caller"`
	Target          string `json:"target"`
	ChainID         uint64 `json:"chainId"`
	Amount          string `json:"amount"`
	DurationSeconds int64  `json:"durationSeconds"`
	Description     string `json:"description,omitempty"`
	Value           string `json:"value"`
}

func (h *handler) handleCreateIncentive(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeJSONBody[createIncentiveRequestBody](w, r)
	if !ok {
		return
	}
	caller, err := parseAddress(body.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_caller")
		return
	}
	target, err := parseAddress(body.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_target")
		return
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	value, err := parseAmount(body.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_value")
		return
	}

	inc, err := h.engine.CreateIncentive(r.Context(), caller, target, body.ChainID, amount,
		time.Duration(body.DurationSeconds)*time.Second, body.Description, value)
	if err != nil {
		h.writeEngineError(w, "create_incentive", err)
		return
	}
	h.countOp("create_incentive", "ok")
	resp := incentiveJSON(inc)
	resp["version"] = "v1"
	writeJSON(w, http.StatusOK, resp)
}

type clawbackRequestBody struct {
	Caller string `json:"caller"`
}

func (h *handler) handleClawback(w http.ResponseWriter, r *http.Request) {
	id, err := parseHash(r.PathValue("incentiveId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_incentive_id")
		return
	}
	body, ok := decodeJSONBody[clawbackRequestBody](w, r)
	if !ok {
		return
	}
	caller, err := parseAddress(body.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_caller")
		return
	}

	inc, err := h.engine.ClawbackIncentive(r.Context(), caller, id)
	if err != nil {
		h.writeEngineError(w, "clawback", err)
		return
	}
	h.countOp("clawback", "ok")
	resp := incentiveJSON(inc)
	resp["version"] = "v1"
	writeJSON(w, http.StatusOK, resp)
}

type blobPutRequestBody struct {
	Payload string `json:"payload"`
}

func (h *handler) handleBlobPut(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeJSONBody[blobPutRequestBody](w, r)
	if !ok {
		return
	}
	data, err := decodeHexBytes(body.Payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	hash, err := h.blobs.Put(r.Context(), data)
	if err != nil {
		if errors.Is(err, blobstore.ErrTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large")
			return
		}
		if errors.Is(err, blobstore.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "invalid_payload")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":     "v1",
		"contentHash": hash.Hex(),
	})
}

func (h *handler) handleBlobGet(w http.ResponseWriter, r *http.Request) {
	hash, err := parseHash(r.PathValue("contentHash"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_content_hash")
		return
	}
	data, err := h.blobs.Get(r.Context(), hash)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{
				"version":     "v1",
				"found":       false,
				"contentHash": hash.Hex(),
			})
			return
		}
		if errors.Is(err, blobstore.ErrCorrupt) {
			writeError(w, http.StatusInternalServerError, "blob_corrupt")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":     "v1",
		"found":       true,
		"contentHash": hash.Hex(),
		"payload":     "0x" + hex.EncodeToString(data),
	})
}

type attestRequestBody struct {
	Attester string   `json:"attester"`
	Hashes   []string `json:"hashes"`
}

func (h *handler) handleAttest(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeJSONBody[attestRequestBody](w, r)
	if !ok {
		return
	}
	attester, err := parseAddress(body.Attester)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_attester")
		return
	}
	hashes := make([]common.Hash, 0, len(body.Hashes))
	for _, raw := range body.Hashes {
		hash, err := parseHash(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_hash")
			return
		}
		hashes = append(hashes, hash)
	}
	if len(hashes) == 0 {
		writeError(w, http.StatusBadRequest, "empty_batch")
		return
	}

	added, err := h.attests.AttestBatch(attester, hashes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_batch")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version": "v1",
		"added":   added,
		"skipped": len(hashes) - added,
	})
}

func (h *handler) handleIsApproved(w http.ResponseWriter, r *http.Request) {
	hash, err := parseHash(r.URL.Query().Get("hash"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_hash")
		return
	}
	account, err := parseAddress(r.URL.Query().Get("account"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_account")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":   "v1",
		"hash":      hash.Hex(),
		"account":   account.Hex(),
		"approved":  h.attests.IsApproved(hash, account),
		"attesters": h.attests.AttesterCount(hash),
	})
}

func (h *handler) countOp(op, outcome string) {
	if h.metrics != nil {
		h.metrics.countOperation(op, outcome)
	}
}

// writeEngineError maps engine sentinels onto HTTP statuses and stable error
// codes so callers can branch without parsing messages.
func (h *handler) writeEngineError(w http.ResponseWriter, op string, err error) {
	code, status := classifyEngineError(err)
	h.countOp(op, code)
	writeError(w, status, code)
}

func classifyEngineError(err error) (code string, status int) {
	switch {
	case errors.Is(err, registry.ErrCommitmentNotFound):
		return "commitment_not_found", http.StatusNotFound
	case errors.Is(err, registry.ErrSpecNotFound):
		return "spec_not_found", http.StatusNotFound
	case errors.Is(err, registry.ErrIncentiveNotFound):
		return "incentive_not_found", http.StatusNotFound
	case errors.Is(err, registry.ErrNotAdmin), errors.Is(err, registry.ErrNotCreator):
		return "unauthorized", http.StatusForbidden
	case errors.Is(err, registry.ErrCommitmentExpired):
		return "commitment_expired", http.StatusConflict
	case errors.Is(err, registry.ErrClawbackTooEarly):
		return "clawback_too_early", http.StatusConflict
	case errors.Is(err, registry.ErrDurationOutOfBounds):
		return "duration_out_of_bounds", http.StatusBadRequest
	case errors.Is(err, registry.ErrAlreadyCommitted):
		return "already_committed", http.StatusConflict
	case errors.Is(err, registry.ErrAlreadyRevealed):
		return "already_revealed", http.StatusConflict
	case errors.Is(err, registry.ErrSpecExists):
		return "spec_exists", http.StatusConflict
	case errors.Is(err, registry.ErrAlreadyProposed):
		return "already_proposed", http.StatusConflict
	case errors.Is(err, registry.ErrNotProposed):
		return "not_proposed", http.StatusConflict
	case errors.Is(err, registry.ErrAlreadyClaimed):
		return "already_claimed", http.StatusConflict
	case errors.Is(err, registry.ErrOracleNotFinalized):
		return "oracle_not_finalized", http.StatusConflict
	case errors.Is(err, registry.ErrPoolDrained):
		return "pool_drained", http.StatusConflict
	case errors.Is(err, registry.ErrInsufficientBond):
		return "insufficient_bond", http.StatusBadRequest
	case errors.Is(err, registry.ErrInsufficientValue):
		return "insufficient_value", http.StatusBadRequest
	case errors.Is(err, registry.ErrInvalidReveal):
		return "invalid_reveal", http.StatusBadRequest
	case errors.Is(err, incentive.ErrAmountTooLarge):
		return "amount_too_large", http.StatusBadRequest
	case errors.Is(err, registry.ErrInvalidInput):
		return "invalid_input", http.StatusBadRequest
	case errors.Is(err, registry.ErrPaused):
		return "paused", http.StatusServiceUnavailable
	case errors.Is(err, registry.ErrTransferFailed):
		return "transfer_failed", http.StatusBadGateway
	default:
		return "internal", http.StatusInternalServerError
	}
}

func specJSON(s spec.Spec) map[string]any {
	proposedAt := ""
	if !s.ProposedAt.IsZero() {
		proposedAt = s.ProposedAt.UTC().Format(time.RFC3339)
	}
	questionID := ""
	if s.QuestionID != (common.Hash{}) {
		questionID = s.QuestionID.Hex()
	}
	return map[string]any{
		"specId":      s.ID.Hex(),
		"status":      s.Status.String(),
		"creator":     s.Creator.Hex(),
		"target":      s.Target.Hex(),
		"chainId":     s.ChainID,
		"contentHash": s.ContentHash.Hex(),
		"bond":        strconv.FormatUint(s.Bond, 10),
		"createdAt":   s.CreatedAt.UTC().Format(time.RFC3339),
		"proposedAt":  proposedAt,
		"questionId":  questionID,
	}
}

func incentiveJSON(inc incentive.Incentive) map[string]any {
	return map[string]any{
		"incentiveId": inc.ID.Hex(),
		"creator":     inc.Creator.Hex(),
		"target":      inc.Target.Hex(),
		"chainId":     inc.ChainID,
		"amount":      strconv.FormatUint(inc.Amount, 10),
		"createdAt":   inc.CreatedAt.UTC().Format(time.RFC3339),
		"deadline":    inc.Deadline.UTC().Format(time.RFC3339),
		"claimed":     inc.Claimed,
		"active":      inc.Active,
		"description": inc.Description,
	}
}

func parseHash(raw string) (common.Hash, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if len(raw) != 64 {
		return common.Hash{}, fmt.Errorf("invalid hash length")
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(b), nil
}

func parseAddress(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid address")
	}
	return common.HexToAddress(raw), nil
}

func parseAmount(raw string) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}

func decodeHexBytes(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "0x")
	raw = strings.TrimPrefix(raw, "0X")
	if raw == "" {
		return nil, errors.New("empty hex value")
	}
	return hex.DecodeString(raw)
}
