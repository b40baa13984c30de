package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tirecheck/apperrors"
	"tirecheck/models"
)

// Store persists analyses and model generation jobs in sqlite.
// Analyses are written once and never updated.
type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// pollers and requests share one sqlite file
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.ComprehensiveTireAnalysis{}, &models.ModelGenerationJob{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info().Str("path", path).Msg("database connected and migrated")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) SaveAnalysis(ctx context.Context, a *models.ComprehensiveTireAnalysis) error {
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return apperrors.NewInternalError("failed to save analysis", err)
	}
	return nil
}

func (s *Store) GetAnalysis(ctx context.Context, id string) (*models.ComprehensiveTireAnalysis, error) {
	var a models.ComprehensiveTireAnalysis
	err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("analysis not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to fetch analysis", err)
	}

	job, err := s.LatestJobForAnalysis(ctx, id)
	switch {
	case err == nil:
		a.ModelJobID = job.ID
	case !apperrors.IsNotFound(err):
		return nil, err
	}
	return &a, nil
}

// ListAnalyses returns analyses newest first.
func (s *Store) ListAnalyses(ctx context.Context, limit, offset int) ([]models.ComprehensiveTireAnalysis, error) {
	var analyses []models.ComprehensiveTireAnalysis
	err := s.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Offset(offset).
		Find(&analyses).Error
	if err != nil {
		return nil, apperrors.NewInternalError("failed to fetch analyses", err)
	}
	if len(analyses) == 0 {
		return analyses, nil
	}

	ids := make([]string, len(analyses))
	for i := range analyses {
		ids[i] = analyses[i].ID
	}
	var jobs []models.ModelGenerationJob
	err = s.db.WithContext(ctx).
		Select("id", "analysis_id").
		Where("analysis_id IN ?", ids).
		Order("created_at ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, apperrors.NewInternalError("failed to fetch model jobs", err)
	}
	latest := make(map[string]string, len(jobs))
	for _, j := range jobs {
		latest[j.AnalysisID] = j.ID
	}
	for i := range analyses {
		analyses[i].ModelJobID = latest[analyses[i].ID]
	}
	return analyses, nil
}

func (s *Store) CountAnalyses(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.ComprehensiveTireAnalysis{}).Count(&total).Error; err != nil {
		return 0, apperrors.NewInternalError("failed to count analyses", err)
	}
	return total, nil
}

// DeleteAnalysis removes the analysis row. Its jobs are kept as history but
// are no longer listed as active.
func (s *Store) DeleteAnalysis(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.ComprehensiveTireAnalysis{}, "id = ?", id)
	if result.Error != nil {
		return apperrors.NewInternalError("failed to delete analysis", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("analysis not found")
	}
	return nil
}

type bucket struct {
	Name  string
	Total int64
}

func (s *Store) Statistics(ctx context.Context) (models.AnalysisSummary, error) {
	stats := models.AnalysisSummary{
		ByStatus:         map[string]int64{},
		ByActionRequired: map[string]int64{},
		ModelJobs:        map[string]int64{},
	}
	db := s.db.WithContext(ctx)
	analyses := func() *gorm.DB { return db.Model(&models.ComprehensiveTireAnalysis{}) }

	if err := analyses().Count(&stats.TotalAnalyses).Error; err != nil {
		return stats, apperrors.NewInternalError("failed to compute statistics", err)
	}

	var avg *float64
	if err := analyses().Select("AVG(overall_health_score)").Scan(&avg).Error; err != nil {
		return stats, apperrors.NewInternalError("failed to compute statistics", err)
	}
	if avg != nil {
		stats.AvgHealthScore = *avg
	}

	err := analyses().
		Where("defects IS NOT NULL AND defects NOT IN ?", []string{"", "[]", "null"}).
		Count(&stats.WithDefects).Error
	if err != nil {
		return stats, apperrors.NewInternalError("failed to compute statistics", err)
	}

	groups := []struct {
		model  any
		column string
		into   map[string]int64
	}{
		{&models.ComprehensiveTireAnalysis{}, "overall_status", stats.ByStatus},
		{&models.ComprehensiveTireAnalysis{}, "action_required", stats.ByActionRequired},
		{&models.ModelGenerationJob{}, "status", stats.ModelJobs},
	}
	for _, g := range groups {
		var rows []bucket
		err := db.Model(g.model).
			Select(g.column + " AS name, COUNT(*) AS total").
			Group(g.column).
			Scan(&rows).Error
		if err != nil {
			return stats, apperrors.NewInternalError("failed to compute statistics", err)
		}
		for _, r := range rows {
			g.into[r.Name] = r.Total
		}
	}
	return stats, nil
}

func (s *Store) SaveJob(ctx context.Context, job *models.ModelGenerationJob) error {
	if err := s.db.WithContext(ctx).Save(job).Error; err != nil {
		return apperrors.NewInternalError("failed to save model job", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*models.ModelGenerationJob, error) {
	var job models.ModelGenerationJob
	err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("model job not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to fetch model job", err)
	}
	return &job, nil
}

// ListActiveJobs returns pending and processing jobs whose analysis still exists.
func (s *Store) ListActiveJobs(ctx context.Context) ([]models.ModelGenerationJob, error) {
	var jobs []models.ModelGenerationJob
	err := s.db.WithContext(ctx).
		Where("status IN ?", []models.JobStatus{models.JobPending, models.JobProcessing}).
		Where("analysis_id IN (?)", s.db.Model(&models.ComprehensiveTireAnalysis{}).Select("id")).
		Order("created_at ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, apperrors.NewInternalError("failed to fetch active model jobs", err)
	}
	return jobs, nil
}

func (s *Store) LatestJobForAnalysis(ctx context.Context, analysisID string) (*models.ModelGenerationJob, error) {
	var job models.ModelGenerationJob
	err := s.db.WithContext(ctx).
		Where("analysis_id = ?", analysisID).
		Order("created_at DESC").
		Take(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("no model job for analysis")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to fetch model job", err)
	}
	return &job, nil
}
