package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/relief-management-api/internal/dto"
	"github.com/yukikurage/relief-management-api/internal/export"
	"github.com/yukikurage/relief-management-api/internal/models"
	"github.com/yukikurage/relief-management-api/internal/testutil"
)

func TestNeedHandler_AreaAdminCreatesInOwnAreaOnly(t *testing.T) {
	env := setupTestEnv(t)
	cookies := env.login(t, "mumbai_admin")

	w := env.request(t, http.MethodPost, "/api/staff/needs", map[string]interface{}{
		"area_id":    env.mumbai.ID,
		"product_id": env.rice.ID,
		"quantity":   250,
		"priority":   "high",
		"notes":      "<b>Shelter</b> 4",
	}, cookies)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var need dto.NeedDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &need))
	assert.Equal(t, models.NeedStatusPending, need.Status)
	assert.Equal(t, "Mumbai District", need.AreaName)
	assert.Equal(t, "Shelter 4", need.Notes)

	w = env.request(t, http.MethodPost, "/api/staff/needs", map[string]interface{}{
		"area_id":    env.pune.ID,
		"product_id": env.rice.ID,
		"quantity":   10,
		"priority":   "low",
	}, cookies)
	require.Equal(t, http.StatusForbidden, w.Code)

	assert.Equal(t, int64(1), testutil.Count(t, env.db, &models.Need{}))
}

func TestNeedHandler_RejectsNonPositiveQuantity(t *testing.T) {
	env := setupTestEnv(t)
	cookies := env.login(t, "mumbai_admin")

	for _, quantity := range []int{0, -3} {
		w := env.request(t, http.MethodPost, "/api/staff/needs", map[string]interface{}{
			"area_id":    env.mumbai.ID,
			"product_id": env.rice.ID,
			"quantity":   quantity,
			"priority":   "urgent",
		}, cookies)
		require.Equal(t, http.StatusBadRequest, w.Code)

		body := decodeError(t, w)
		details, ok := body.Details.(map[string]interface{})
		require.True(t, ok, "expected field details, got %v", body.Details)
		assert.Contains(t, details, "quantity")
	}

	assert.Equal(t, int64(0), testutil.Count(t, env.db, &models.Need{}))
}

func TestNeedHandler_StaffRoutesRequireStaff(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/staff/needs", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.request(t, http.MethodGet, "/api/staff/needs", nil, env.login(t, "visitor"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodGet, "/api/admin/needs", nil, env.login(t, "mumbai_admin"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNeedHandler_ListIsScopedToOwnArea(t *testing.T) {
	env := setupTestEnv(t)
	testutil.CreateNeed(t, env.db, env.mumbai.ID, env.rice.ID, 10, models.PriorityLow)
	testutil.CreateNeed(t, env.db, env.mumbai.ID, env.rice.ID, 20, models.PriorityHigh)
	other := testutil.CreateNeed(t, env.db, env.pune.ID, env.rice.ID, 30, models.PriorityUrgent)

	cookies := env.login(t, "mumbai_admin")
	path := fmt.Sprintf("/api/staff/needs?area_id=%d&page_size=1", env.pune.ID)
	w := env.request(t, http.MethodGet, path, nil, cookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var list dto.NeedListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, int64(2), list.TotalCount)
	assert.Equal(t, 2, list.TotalPages)
	require.Len(t, list.Needs, 1)
	assert.Equal(t, env.mumbai.ID, list.Needs[0].AreaID)

	w = env.request(t, http.MethodGet, fmt.Sprintf("/api/staff/needs/%d", other.ID), nil, cookies)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodPatch, fmt.Sprintf("/api/staff/needs/%d", other.ID), map[string]interface{}{
		"quantity": 1,
	}, cookies)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNeedHandler_SetStatus(t *testing.T) {
	env := setupTestEnv(t)
	need := testutil.CreateNeed(t, env.db, env.mumbai.ID, env.rice.ID, 10, models.PriorityLow)
	cookies := env.login(t, "admin")
	path := fmt.Sprintf("/api/admin/needs/%d/status", need.ID)

	w := env.request(t, http.MethodPatch, path, map[string]string{"status": "in_progress"}, cookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.request(t, http.MethodPatch, path, map[string]string{"status": "pending"}, cookies)
	require.Equal(t, http.StatusConflict, w.Code)

	w = env.request(t, http.MethodPatch, path, map[string]string{"status": "fulfilled"}, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	// Fulfilled needs can no longer be edited.
	w = env.request(t, http.MethodPatch, fmt.Sprintf("/api/staff/needs/%d", need.ID), map[string]interface{}{
		"quantity": 5,
	}, cookies)
	require.Equal(t, http.StatusConflict, w.Code)

	w = env.request(t, http.MethodDelete, fmt.Sprintf("/api/admin/needs/%d", need.ID), nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(0), testutil.Count(t, env.db, &models.Need{}))
}

func TestNeedHandler_ExportCSV(t *testing.T) {
	env := setupTestEnv(t)
	testutil.CreateNeed(t, env.db, env.mumbai.ID, env.rice.ID, 10, models.PriorityLow)
	testutil.CreateNeed(t, env.db, env.pune.ID, env.rice.ID, 20, models.PriorityHigh)
	cookies := env.login(t, "admin")

	w := env.request(t, http.MethodGet, "/api/admin/needs/export?format=csv", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, export.FormatCSV.ContentType(), w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "needs_")

	records, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, export.NeedHeader, records[0])

	w = env.request(t, http.MethodGet, "/api/admin/needs/export?format=pdf", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".pdf")
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-"))

	w = env.request(t, http.MethodGet, "/api/admin/needs/export?format=docx", nil, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
