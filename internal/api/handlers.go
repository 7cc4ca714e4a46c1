// Package api wires up the Gin HTTP router with all handler functions. The
// HTTP surface is the boundary the spec treats as an external collaborator:
// JSON framing and routing live here, every handler of a documented route
// decodes a request, calls exactly one Engine method, and maps the result
// (or sentinel error) to the documented envelope and status code.
package api

import (
	"distributed-kvstore/internal/replica"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler holds the one dependency every route needs: the replication
// engine. There is no package-level state.
type Handler struct {
	engine *replica.Engine
}

// NewHandler creates a Handler.
func NewHandler(e *replica.Engine) *Handler {
	return &Handler{engine: e}
}

// Register mounts every route named in §6 on r, plus the ambient /health
// liveness probe.
func (h *Handler) Register(r *gin.Engine) {
	r.PUT("/view", h.ViewPut)
	r.GET("/view", h.ViewGet)
	r.DELETE("/view", h.ViewDelete)

	r.PUT("/viewed", h.ViewedPut)
	r.DELETE("/viewed", h.ViewedDelete)

	r.PUT("/kvs/:key", h.KVSPut)
	r.GET("/kvs/:key", h.KVSGet)
	r.DELETE("/kvs/:key", h.KVSDelete)

	r.PUT("/replica/kvs/:key/:origin", h.ReplicaKVSPut)
	r.DELETE("/replica/kvs/:key/:origin", h.ReplicaKVSDelete)

	r.GET("/vckvs", h.StateTransfer)

	r.GET("/health", h.Health)
}

// ─── View management (§4.5, §6) ───────────────────────────────────────────

func (h *Handler) ViewPut(c *gin.Context) {
	var body replica.SocketAddressBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, replica.ErrorBody{Error: err.Error()})
		return
	}

	alreadyPresent := h.engine.JoinView(body.SocketAddress)
	if alreadyPresent {
		c.JSON(http.StatusOK, gin.H{"result": "already present"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"result": "added"})
}

func (h *Handler) ViewGet(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"view": h.engine.ListView()})
}

func (h *Handler) ViewDelete(c *gin.Context) {
	var body replica.SocketAddressBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, replica.ErrorBody{Error: err.Error()})
		return
	}

	if err := h.engine.DepartView(body.SocketAddress); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "deleted"})
}

// ViewedPut and ViewedDelete apply a peer-originated view change without
// re-broadcasting (§4.5), so a join or eviction fans out exactly once.
func (h *Handler) ViewedPut(c *gin.Context) {
	var body replica.SocketAddressBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, replica.ErrorBody{Error: err.Error()})
		return
	}
	if h.engine.ApplyViewed(body.SocketAddress, true) {
		c.JSON(http.StatusCreated, gin.H{"result": "added"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "already present"})
}

func (h *Handler) ViewedDelete(c *gin.Context) {
	var body replica.SocketAddressBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, replica.ErrorBody{Error: err.Error()})
		return
	}
	if !h.engine.ApplyViewed(body.SocketAddress, false) {
		c.JSON(http.StatusNotFound, replica.ErrorBody{Error: "replica not found in view"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "deleted"})
}

// ─── Client-facing KV operations (§4.3, §6) ───────────────────────────────

func (h *Handler) KVSPut(c *gin.Context) {
	key := c.Param("key")

	var body replica.PutBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, replica.ErrorBody{Error: err.Error()})
		return
	}

	result, vc, err := h.engine.Put(key, body.Value, body.CausalMetadata)
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := http.StatusOK
	if result == "created" {
		status = http.StatusCreated
	}
	c.JSON(status, replica.KVResult{Result: result, CausalMetadata: vc})
}

func (h *Handler) KVSGet(c *gin.Context) {
	key := c.Param("key")

	var body replica.CausalBody
	if err := bindOptionalJSON(c, &body); err != nil {
		c.JSON(http.StatusBadRequest, replica.ErrorBody{Error: err.Error()})
		return
	}

	value, vc, err := h.engine.Get(key, body.CausalMetadata)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, replica.KVResult{Value: value, CausalMetadata: vc})
}

func (h *Handler) KVSDelete(c *gin.Context) {
	key := c.Param("key")

	var body replica.CausalBody
	if err := bindOptionalJSON(c, &body); err != nil {
		c.JSON(http.StatusBadRequest, replica.ErrorBody{Error: err.Error()})
		return
	}

	vc, err := h.engine.Delete(key, body.CausalMetadata)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, replica.KVResult{Result: "deleted", CausalMetadata: vc})
}

// ─── Peer-facing replication (§4.4, §6) ───────────────────────────────────

func (h *Handler) ReplicaKVSPut(c *gin.Context) {
	key := c.Param("key")
	origin := c.Param("origin")

	var body replica.PutBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, replica.ErrorBody{Error: err.Error()})
		return
	}

	replaced, err := h.engine.ApplyRemote(origin, key, &body.Value, body.CausalMetadata)
	if err != nil {
		h.writeError(c, err)
		return
	}
	status := http.StatusCreated
	if replaced {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"result": "applied"})
}

func (h *Handler) ReplicaKVSDelete(c *gin.Context) {
	key := c.Param("key")
	origin := c.Param("origin")

	var body replica.CausalBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, replica.ErrorBody{Error: err.Error()})
		return
	}

	_, err := h.engine.ApplyRemote(origin, key, nil, body.CausalMetadata)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "deleted"})
}

// ─── State transfer (§4.7, §6) ────────────────────────────────────────────

func (h *Handler) StateTransfer(c *gin.Context) {
	vc, kvs := h.engine.Snapshot()
	c.JSON(http.StatusOK, replica.StateSnapshot{VC: vc, KVS: kvs})
}

// ─── Ambient ───────────────────────────────────────────────────────────────

// Health is not part of the documented API; it exists for load balancers
// and readiness probes, the way the donor's cmd/server/main.go always adds
// one alongside the spec'd surface.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"node":      h.engine.Self(),
		"status":    "ok",
		"view_size": len(h.engine.ListView()),
	})
}

// ─── Error mapping ─────────────────────────────────────────────────────────

// writeError maps every Engine sentinel error to its documented status
// code in the one place the whole handler layer shares (§7).
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, replica.ErrCausalPending):
		c.JSON(http.StatusServiceUnavailable, replica.ErrorBody{Error: err.Error()})
	case errors.Is(err, replica.ErrKeyNotFound), errors.Is(err, replica.ErrReplicaUnknown):
		c.JSON(http.StatusNotFound, replica.ErrorBody{Error: err.Error()})
	case errors.Is(err, replica.ErrKeyTooLong):
		c.JSON(http.StatusBadRequest, replica.ErrorBody{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, replica.ErrorBody{Error: err.Error()})
	}
}

// bindOptionalJSON decodes body into v if a request body was supplied, and
// treats an empty body as "no causal-metadata" rather than an error — GET
// and DELETE requests under this API may or may not carry one (§3's CM is
// optional).
func bindOptionalJSON(c *gin.Context, v *replica.CausalBody) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	err := c.ShouldBindJSON(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
