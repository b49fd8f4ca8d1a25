package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/relief-management-api/internal/dto"
	"github.com/yukikurage/relief-management-api/internal/models"
	"github.com/yukikurage/relief-management-api/internal/testutil"
)

func TestPublicHandler_OpenNeedsSortedByPriority(t *testing.T) {
	env := setupTestEnv(t)
	for _, p := range []models.NeedPriority{models.PriorityLow, models.PriorityUrgent, models.PriorityMedium, models.PriorityHigh} {
		testutil.CreateNeed(t, env.db, env.mumbai.ID, env.rice.ID, 10, p)
	}
	closed := testutil.CreateNeed(t, env.db, env.mumbai.ID, env.rice.ID, 10, models.PriorityUrgent)
	require.NoError(t, env.db.Model(closed).Update("status", models.NeedStatusFulfilled).Error)

	w := env.request(t, http.MethodGet, "/api/public/needs?sort=priority", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Needs []dto.NeedDTO `json:"needs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	got := make([]models.NeedPriority, len(body.Needs))
	for i, n := range body.Needs {
		got[i] = n.Priority
	}
	assert.Equal(t, []models.NeedPriority{
		models.PriorityUrgent, models.PriorityHigh, models.PriorityMedium, models.PriorityLow,
	}, got)

	w = env.request(t, http.MethodGet, "/api/public/needs?sort=alphabet", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublicHandler_StatsAndAreas(t *testing.T) {
	env := setupTestEnv(t)
	testutil.CreateNeed(t, env.db, env.pune.ID, env.rice.ID, 10, models.PriorityUrgent)

	w := env.request(t, http.MethodGet, "/api/public/stats", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats["total_areas"])
	assert.Equal(t, int64(1), stats["urgent_needs"])
	assert.Equal(t, int64(1), stats["active_assignments"])

	w = env.request(t, http.MethodGet, "/api/public/areas/999", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.request(t, http.MethodGet, "/api/public/areas/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublicHandler_SubmitContact(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/public/contact", map[string]string{
		"name":    "Asha",
		"email":   "asha@example.com",
		"subject": "Volunteering",
		"message": "Can I help <script>x</script>this weekend?",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var stored models.ContactMessage
	require.NoError(t, env.db.First(&stored).Error)
	assert.Equal(t, "Can I help this weekend?", stored.Message)
	assert.Equal(t, models.ContactStatusNew, stored.Status)

	w = env.request(t, http.MethodPost, "/api/public/contact", map[string]string{
		"name":    "Asha",
		"email":   "not-an-email",
		"subject": "Volunteering",
		"message": "Hello",
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Contains(t, body.Details, "email")

	assert.Equal(t, int64(1), testutil.Count(t, env.db, &models.ContactMessage{}))
}
