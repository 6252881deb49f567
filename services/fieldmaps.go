package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"invite-digest/config"
	"invite-digest/storage"
)

// ErrNoSource is returned by Reload when no field map source is configured.
var ErrNoSource = errors.New("no field map source configured")

// FieldMapStore hält die aktive Field-Map und tauscht sie beim Reload atomar aus.
type FieldMapStore struct {
	Logger  *zap.Logger
	source  storage.Source
	current atomic.Pointer[config.FieldMap]
}

// NewFieldMapStore startet mit der Default-Map. source darf nil sein.
func NewFieldMapStore(logger *zap.Logger, source storage.Source) *FieldMapStore {
	s := &FieldMapStore{Logger: logger, source: source}
	s.current.Store(config.DefaultFieldMap())
	return s
}

func (s *FieldMapStore) Current() *config.FieldMap {
	return s.current.Load()
}

// Reload lädt die Field-Map neu. Bei Fehlern bleibt die bisherige Map aktiv.
func (s *FieldMapStore) Reload(ctx context.Context) error {
	if s.source == nil {
		return ErrNoSource
	}
	log := s.Logger.With(zap.String("source", s.source.Name()))

	data, err := s.source.Fetch(ctx)
	if err != nil {
		log.Error("Field map fetch failed, keeping previous map", zap.Error(err))
		return err
	}
	fm, err := config.ParseFieldMap(data)
	if err != nil {
		log.Error("Field map invalid, keeping previous map", zap.Error(err))
		return fmt.Errorf("parse %s: %w", s.source.Name(), err)
	}

	s.current.Store(fm)
	log.Info("Field map reloaded", zap.Int("fields", len(fm.Fields)))
	return nil
}
