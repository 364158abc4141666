package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"evreserve/internal/models"
)

// SlotStore persists slot configs, templates and availabilities.
type SlotStore interface {
	GetConfig(ctx context.Context, id int64) (*models.SlotConfig, error)
	GetStation(ctx context.Context, id int64) (*models.Station, error)
	UpsertTemplate(ctx context.Context, t *models.SlotTemplate) error
	EnsureAvailability(ctx context.Context, a *models.SlotAvailability) (bool, error)
	ListOpen(ctx context.Context, stationID int64, date time.Time, connectorType string) ([]models.OpenSlot, error)
}

// SlotsService expands a station's slot config into the bookable calendar.
type SlotsService struct {
	store  SlotStore
	logger *zap.Logger
}

// NewSlotsService builds service.
func NewSlotsService(store SlotStore, logger *zap.Logger) *SlotsService {
	return &SlotsService{store: store, logger: logger}
}

// GenerateResult summarizes one generation run.
type GenerateResult struct {
	Templates         int `json:"templates"`
	NewAvailabilities int `json:"new_availabilities"`
}

// Generate expands the config into slot templates for every day in
// [startDate, endDate) and one availability row per (template, connector type).
// Re-invoking for an overlapping range creates no duplicates: templates are
// upserted on (config, date, index) and availabilities on (template, connector).
func (s *SlotsService) Generate(ctx context.Context, configID int64, startDate, endDate time.Time, connectorTypes []string) (*GenerateResult, error) {
	startDate = truncateDay(startDate)
	endDate = truncateDay(endDate)
	if !startDate.Before(endDate) {
		return nil, fmt.Errorf("slots: empty date range: %w", models.ErrInvalidState)
	}

	cfg, err := s.store.GetConfig(ctx, configID)
	if err != nil {
		return nil, err
	}
	if !cfg.IsActive || startDate.Before(cfg.ActiveFrom) || endDate.After(cfg.ActiveExpire) {
		return nil, models.ErrConfigInactive
	}
	if cfg.SlotDurationMin <= 0 {
		return nil, fmt.Errorf("slots: config %d has non-positive slot duration", cfg.ID)
	}

	station, err := s.store.GetStation(ctx, cfg.StationID)
	if err != nil {
		return nil, err
	}
	if station.CloseMinutes <= station.OpenMinutes {
		return nil, fmt.Errorf("slots: station %d has empty operating window", station.ID)
	}

	if len(connectorTypes) == 0 {
		connectorTypes = []string{models.ConnectorAC, models.ConnectorDC}
	}
	for _, ct := range connectorTypes {
		if ct != models.ConnectorAC && ct != models.ConnectorDC {
			return nil, fmt.Errorf("slots: unknown connector type %q", ct)
		}
	}

	duration := time.Duration(cfg.SlotDurationMin) * time.Minute
	result := &GenerateResult{}

	for day := startDate; day.Before(endDate); day = day.AddDate(0, 0, 1) {
		open := day.Add(time.Duration(station.OpenMinutes) * time.Minute)
		close := day.Add(time.Duration(station.CloseMinutes) * time.Minute)

		for index := 0; ; index++ {
			slotStart := open.Add(time.Duration(index) * duration)
			slotEnd := slotStart.Add(duration)
			if slotEnd.After(close) {
				break
			}

			template := &models.SlotTemplate{
				ConfigID:  cfg.ID,
				SlotDate:  day,
				SlotIndex: index,
				StartTime: slotStart,
				EndTime:   slotEnd,
			}
			if err := s.store.UpsertTemplate(ctx, template); err != nil {
				return nil, fmt.Errorf("slots: upsert template: %w", err)
			}
			result.Templates++

			for _, ct := range connectorTypes {
				availability := &models.SlotAvailability{
					TemplateID:    template.ID,
					ConnectorType: ct,
					SlotDate:      day,
					Status:        models.SlotStatusAvailable,
				}
				created, err := s.store.EnsureAvailability(ctx, availability)
				if err != nil {
					return nil, fmt.Errorf("slots: ensure availability: %w", err)
				}
				if created {
					result.NewAvailabilities++
				}
			}
		}
	}

	s.logger.Info("slot grid generated",
		zap.Int64("config_id", cfg.ID),
		zap.Int64("station_id", station.ID),
		zap.Time("start_date", startDate),
		zap.Time("end_date", endDate),
		zap.Int("templates", result.Templates),
		zap.Int("new_availabilities", result.NewAvailabilities),
	)
	return result, nil
}

// ListOpen returns AVAILABLE slots of a station for one date and connector type.
func (s *SlotsService) ListOpen(ctx context.Context, stationID int64, date time.Time, connectorType string) ([]models.OpenSlot, error) {
	return s.store.ListOpen(ctx, stationID, truncateDay(date), connectorType)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
