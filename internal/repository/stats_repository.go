package repository

import (
	"github.com/yukikurage/relief-management-api/internal/models"
	"gorm.io/gorm"
)

// GormStatsRepository is a GORM implementation of StatsRepository
type GormStatsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &GormStatsRepository{db: db}
}

// Stats returns the headline counts
func (r *GormStatsRepository) Stats() (*Stats, error) {
	var stats Stats
	counts := []struct {
		query *gorm.DB
		dest  *int64
	}{
		{r.db.Model(&models.Area{}), &stats.TotalAreas},
		{r.db.Model(&models.Need{}), &stats.TotalNeeds},
		{r.db.Model(&models.Need{}).Where("status IN ?",
			[]models.NeedStatus{models.NeedStatusPending, models.NeedStatusInProgress}), &stats.OpenNeeds},
		{r.db.Model(&models.Need{}).Where("priority = ? AND status IN ?", models.PriorityUrgent,
			[]models.NeedStatus{models.NeedStatusPending, models.NeedStatusInProgress}), &stats.UrgentNeeds},
		{r.db.Model(&models.Product{}), &stats.TotalProducts},
		{r.db.Model(&models.AreaAssignment{}).Where("is_active = ?", true), &stats.ActiveAssignments},
	}

	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	return &stats, nil
}

// NeedCountsByStatus counts needs per status, optionally within one area
func (r *GormStatsRepository) NeedCountsByStatus(areaID *uint64) (map[models.NeedStatus]int64, error) {
	var rows []struct {
		Status models.NeedStatus
		Total  int64
	}

	query := r.db.Model(&models.Need{}).Select("status, COUNT(*) AS total").Group("status")
	if areaID != nil {
		query = query.Where("area_id = ?", *areaID)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := map[models.NeedStatus]int64{
		models.NeedStatusPending:    0,
		models.NeedStatusInProgress: 0,
		models.NeedStatusFulfilled:  0,
		models.NeedStatusCancelled:  0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
