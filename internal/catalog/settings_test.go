package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"shopcore.dev/internal/apperr"
)

func TestPutSettingRoundTrip(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	setting, err := svc.PutSetting(ctx, "store.name", json.RawMessage(`"Shopcore"`))
	if err != nil {
		t.Fatalf("PutSetting: %v", err)
	}
	if setting.Key != "store.name" {
		t.Fatalf("unexpected key %q", setting.Key)
	}

	got, err := svc.GetSetting(ctx, "store.name")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	var name string
	if err := json.Unmarshal(got.Value, &name); err != nil || name != "Shopcore" {
		t.Fatalf("unexpected value %s (%v)", got.Value, err)
	}
}

func TestPutSettingValidation(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	if _, err := svc.PutSetting(ctx, "  ", json.RawMessage(`1`)); apperr.CodeOf(err) != apperr.CodeValidation {
		t.Fatalf("blank key must fail validation, got %v", err)
	}
	if _, err := svc.PutSetting(ctx, "k", json.RawMessage(`{broken`)); apperr.CodeOf(err) != apperr.CodeValidation {
		t.Fatalf("malformed JSON must fail validation, got %v", err)
	}
}

func TestPutSettingInvalidatesCachedValue(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	if _, err := svc.PutSetting(ctx, "checkout.enabled", json.RawMessage(`true`)); err != nil {
		t.Fatalf("PutSetting: %v", err)
	}
	if _, err := svc.GetSetting(ctx, "checkout.enabled"); err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if _, err := svc.PutSetting(ctx, "checkout.enabled", json.RawMessage(`false`)); err != nil {
		t.Fatalf("PutSetting: %v", err)
	}

	got, err := svc.GetSetting(ctx, "checkout.enabled")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	var enabled bool
	if err := json.Unmarshal(got.Value, &enabled); err != nil || enabled {
		t.Fatalf("expected updated value false, got %s", got.Value)
	}
}

func TestDeleteSetting(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	if _, err := svc.PutSetting(ctx, "k", json.RawMessage(`1`)); err != nil {
		t.Fatalf("PutSetting: %v", err)
	}
	if err := svc.DeleteSetting(ctx, "k"); err != nil {
		t.Fatalf("DeleteSetting: %v", err)
	}
	if _, err := svc.GetSetting(ctx, "k"); apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.DeleteSetting(ctx, "k"); apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
