package service

import (
	"context"
	"errors"

	"evreserve/internal/models"
)

// TariffStore provides tariff lookups.
type TariffStore interface {
	GetActive(ctx context.Context) (*models.Tariff, error)
}

// TariffService provides tariff lookups with fallback.
type TariffService struct {
	store         TariffStore
	defaultTariff models.Tariff
}

// NewTariffService returns service instance.
func NewTariffService(store TariffStore, defaultPricePerKWh float64, defaultCurrency string) *TariffService {
	return &TariffService{
		store: store,
		defaultTariff: models.Tariff{
			Name:        "Default",
			PricePerKWh: defaultPricePerKWh,
			Currency:    defaultCurrency,
			IsActive:    true,
		},
	}
}

// ActiveTariff returns currently active tariff or default fallback.
func (s *TariffService) ActiveTariff(ctx context.Context) (*models.Tariff, error) {
	if s.store == nil {
		if s.defaultTariff.PricePerKWh <= 0 {
			return nil, errors.New("tariff: no tariff configured")
		}
		t := s.defaultTariff
		return &t, nil
	}

	tariff, err := s.store.GetActive(ctx)
	if err != nil {
		if s.defaultTariff.PricePerKWh <= 0 {
			return nil, err
		}
		t := s.defaultTariff
		return &t, nil
	}
	return tariff, nil
}
