package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/admission-seat-allocation/internal/engine"
	"github.com/iliyamo/admission-seat-allocation/internal/middleware"
	"github.com/iliyamo/admission-seat-allocation/internal/queue"
	"github.com/iliyamo/admission-seat-allocation/internal/repository"
)

// AllocationHandler exposes the allocation engine over HTTP. Reads are
// public; the mutating endpoints sit behind JWT + role middleware. After a
// successful mutation the handler persists the snapshot, invalidates the
// response cache and hands an AllocationChangedEvent to OnChange; all three
// are optional so the engine stays usable in isolation (and in tests).
type AllocationHandler struct {
	Engine      *engine.Engine
	Assignments *repository.AssignmentRepo
	Cache       *middleware.SnapshotCache
	OnChange    func(context.Context, queue.AllocationChangedEvent)
}

func NewAllocationHandler(eng *engine.Engine) *AllocationHandler {
	if eng == nil {
		panic("nil engine passed to NewAllocationHandler")
	}
	return &AllocationHandler{Engine: eng}
}

type withdrawReq struct {
	CandidateID string `json:"candidate_id"`
}

type capacityReq struct {
	Branch   string `json:"branch"`
	SeatType string `json:"seat_type"`
	Delta    int    `json:"delta"`
}

// Run executes the one-pass initial allocation. Running it twice is a
// client error: the engine refuses and the handler reports 409.
func (h *AllocationHandler) Run(c echo.Context) error {
	moves, err := h.Engine.InitialAllocate()
	if err != nil {
		if errors.Is(err, engine.ErrAlreadyAllocated) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "allocation already performed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "allocation failed"})
	}
	h.afterMutation(c.Request().Context(), queue.AllocationChangedEvent{
		Trigger: "initial_allocation",
		Moves:   moves,
	})
	return c.JSON(http.StatusOK, echo.Map{"assigned": len(moves), "moves": moves})
}

// Snapshot returns every candidate's current assignment in priority order.
func (h *AllocationHandler) Snapshot(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Engine.Snapshot())
}

// GetCandidate returns one candidate's assignment.
func (h *AllocationHandler) GetCandidate(c echo.Context) error {
	a, err := h.Engine.Candidate(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "candidate not found"})
	}
	return c.JSON(http.StatusOK, a)
}

// Withdraw frees a candidate's seat and cascades the vacancy. The engine's
// no-op answer for an unknown id is surfaced as 404 here so interactive
// callers get feedback; the queue intake path swallows it instead.
func (h *AllocationHandler) Withdraw(c echo.Context) error {
	var req withdrawReq
	if err := c.Bind(&req); err != nil || req.CandidateID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "candidate_id is required"})
	}
	moves, err := h.Engine.Withdraw(req.CandidateID)
	if err != nil {
		if errors.Is(err, engine.ErrCandidateNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "candidate not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "withdraw failed"})
	}
	h.afterMutation(c.Request().Context(), queue.AllocationChangedEvent{
		Trigger:     "withdrawal",
		CandidateID: req.CandidateID,
		Moves:       moves,
	})
	return c.JSON(http.StatusOK, echo.Map{"candidate_id": req.CandidateID, "moves": moves})
}

// AddCapacity grows a (branch, seat type) pool and cascades the new
// vacancies. Non-positive deltas and unknown seat types are rejected with
// 400 before any state change.
func (h *AllocationHandler) AddCapacity(c echo.Context) error {
	var req capacityReq
	if err := c.Bind(&req); err != nil || req.Branch == "" || req.SeatType == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "branch and seat_type are required"})
	}
	moves, err := h.Engine.AddCapacity(req.Branch, req.SeatType, req.Delta)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidCapacityDelta) || errors.Is(err, engine.ErrUnknownSeatType) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "add capacity failed"})
	}
	h.afterMutation(c.Request().Context(), queue.AllocationChangedEvent{
		Trigger:  "capacity_added",
		Branch:   req.Branch,
		SeatType: req.SeatType,
		Delta:    req.Delta,
		Moves:    moves,
	})
	return c.JSON(http.StatusOK, echo.Map{"branch": req.Branch, "seat_type": req.SeatType, "moves": moves})
}

// afterMutation runs the side effects of a successful state change:
// persisting the snapshot projection, invalidating cached reads and
// notifying downstream consumers. Failures are logged, never surfaced — the
// engine state already changed and is the source of truth.
func (h *AllocationHandler) afterMutation(ctx context.Context, ev queue.AllocationChangedEvent) {
	ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	if h.Assignments != nil {
		if err := h.Assignments.ReplaceAll(ctx, h.Engine.Snapshot()); err != nil {
			log.Printf("allocation: persist snapshot failed: %v", err)
		}
	}
	h.Cache.Bump(ctx)
	if h.OnChange != nil {
		h.OnChange(ctx, ev)
	}
}
