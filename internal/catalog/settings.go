package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"shopcore.dev/internal/apperr"
	"shopcore.dev/internal/events"
)

// GetSetting returns one setting by key.
func (s *Service) GetSetting(ctx context.Context, key string) (*Setting, error) {
	if v, ok := s.cache.Get(cacheKeySetting(key)); ok {
		return v.(*Setting), nil
	}
	setting, err := s.store.Settings().Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("setting")
	}
	if err != nil {
		return nil, err
	}
	s.cache.Set(cacheKeySetting(key), setting, 0)
	return setting, nil
}

// ListSettings returns every setting.
func (s *Service) ListSettings(ctx context.Context) ([]*Setting, error) {
	if v, ok := s.cache.Get(cacheKeySettingsAll); ok {
		return v.([]*Setting), nil
	}
	list, err := s.store.Settings().List(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cacheKeySettingsAll, list, 0)
	return list, nil
}

// PutSetting creates or replaces the value for key. The value must be
// valid JSON; the subscriber evicts both the key and the settings family.
func (s *Service) PutSetting(ctx context.Context, key string, value json.RawMessage) (*Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, apperr.Validation("setting key is required",
			apperr.FieldError{Field: "key", Message: "must not be empty"})
	}
	if !json.Valid(value) {
		return nil, apperr.Validation("setting value must be valid JSON",
			apperr.FieldError{Field: "value", Message: "malformed JSON"})
	}
	setting, err := s.store.Settings().Upsert(ctx, key, value)
	if err != nil {
		return nil, err
	}
	if err := s.bus.PublishWait(ctx, &events.SettingsEvent{Key: key}); err != nil {
		return setting, err
	}
	return setting, nil
}

// DeleteSetting removes a setting; missing keys are a 404.
func (s *Service) DeleteSetting(ctx context.Context, key string) error {
	if _, err := s.store.Settings().Get(ctx, key); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("setting")
		}
		return err
	}
	if err := s.store.Settings().Delete(ctx, key); err != nil {
		return err
	}
	return s.bus.PublishWait(ctx, &events.SettingsEvent{Key: key})
}
