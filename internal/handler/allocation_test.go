package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/admission-seat-allocation/internal/engine"
	"github.com/iliyamo/admission-seat-allocation/internal/model"
	"github.com/iliyamo/admission-seat-allocation/internal/queue"
)

func testEngine() *engine.Engine {
	return engine.New(
		map[string]map[string]int{
			"CSE": {"OPEN": 1, "SC": 1},
			"ECE": {"OPEN": 1},
		},
		[]model.Candidate{
			{ID: "S1", Rank: 1, Category: "GEN", Preferences: []string{"CSE", "ECE"}, TotalMarks: 480, SubjectMarks: 95, DOB: "2004-02-01"},
			{ID: "S2", Rank: 2, Category: "SC", Preferences: []string{"CSE"}, TotalMarks: 475, SubjectMarks: 94, DOB: "2004-05-10"},
			{ID: "S3", Rank: 3, Category: "GEN", Preferences: []string{"CSE", "ECE"}, TotalMarks: 470, SubjectMarks: 90, DOB: "2004-03-20"},
		},
	)
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for i := 0; i+1 < len(params); i += 2 {
		c.SetParamNames(params[i])
		c.SetParamValues(params[i+1])
	}
	require.NoError(t, h(c))
	return rec
}

func TestRunAndSnapshot(t *testing.T) {
	h := NewAllocationHandler(testEngine())

	rec := doJSON(t, h.Run, http.MethodPost, "/v1/allocation/run", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h.Run, http.MethodPost, "/v1/allocation/run", "")
	assert.Equal(t, http.StatusConflict, rec.Code, "second run must report conflict")

	rec = doJSON(t, h.Snapshot, http.MethodGet, "/v1/allocation", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap []engine.Assignment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap, 3)
	// Ordered by priority key: S1 first, holding CSE open.
	assert.Equal(t, "S1", snap[0].CandidateID)
	require.NotNil(t, snap[0].Branch)
	assert.Equal(t, "CSE", *snap[0].Branch)
	assert.Equal(t, "OPEN", *snap[0].SeatType)
}

func TestGetCandidate(t *testing.T) {
	h := NewAllocationHandler(testEngine())
	doJSON(t, h.Run, http.MethodPost, "/v1/allocation/run", "")

	rec := doJSON(t, h.GetCandidate, http.MethodGet, "/v1/allocation/candidates/S2", "", "id", "S2")
	require.Equal(t, http.StatusOK, rec.Code)
	var a engine.Assignment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, "S2", a.CandidateID)
	require.NotNil(t, a.SeatType)
	assert.Equal(t, "SC", *a.SeatType)

	rec = doJSON(t, h.GetCandidate, http.MethodGet, "/v1/allocation/candidates/nope", "", "id", "nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWithdrawEndpoint(t *testing.T) {
	h := NewAllocationHandler(testEngine())
	doJSON(t, h.Run, http.MethodPost, "/v1/allocation/run", "")

	var got []queue.AllocationChangedEvent
	h.OnChange = func(_ context.Context, ev queue.AllocationChangedEvent) { got = append(got, ev) }

	rec := doJSON(t, h.Withdraw, http.MethodPost, "/v1/allocation/withdrawals", `{"candidate_id":"S1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, got, 1)
	assert.Equal(t, "withdrawal", got[0].Trigger)
	assert.Equal(t, "S1", got[0].CandidateID)
	// S3 upgrades from ECE into the freed CSE open seat.
	require.NotEmpty(t, got[0].Moves)
	assert.Equal(t, "S3", got[0].Moves[0].CandidateID)

	rec = doJSON(t, h.Withdraw, http.MethodPost, "/v1/allocation/withdrawals", `{"candidate_id":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h.Withdraw, http.MethodPost, "/v1/allocation/withdrawals", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddCapacityEndpoint(t *testing.T) {
	h := NewAllocationHandler(testEngine())
	doJSON(t, h.Run, http.MethodPost, "/v1/allocation/run", "")

	rec := doJSON(t, h.AddCapacity, http.MethodPost, "/v1/allocation/capacity", `{"branch":"CSE","seat_type":"OPEN","delta":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h.AddCapacity, http.MethodPost, "/v1/allocation/capacity", `{"branch":"CSE","seat_type":"VIP","delta":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h.AddCapacity, http.MethodPost, "/v1/allocation/capacity", `{"branch":"CSE","seat_type":"OPEN","delta":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Moves []engine.Move `json:"moves"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// S3 (rank 3, holding ECE) upgrades into the new CSE open seat.
	require.Len(t, resp.Moves, 1)
	assert.Equal(t, "S3", resp.Moves[0].CandidateID)
	assert.Equal(t, "CSE", resp.Moves[0].ToBranch)
}
