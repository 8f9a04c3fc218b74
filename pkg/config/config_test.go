package config

import (
	"testing"
	"time"
)

func TestGetInt64(t *testing.T) {
	t.Setenv("ROSTER_TEST_INT64", "900")
	if got := GetInt64("ROSTER_TEST_INT64", 600); got != 900 {
		t.Fatalf("GetInt64 = %d, want 900", got)
	}
	if got := GetInt64("ROSTER_TEST_INT64_UNSET", 600); got != 600 {
		t.Fatalf("GetInt64 fallback = %d, want 600", got)
	}
	t.Setenv("ROSTER_TEST_INT64", "not-a-number")
	if got := GetInt64("ROSTER_TEST_INT64", 600); got != 600 {
		t.Fatalf("GetInt64 with invalid value = %d, want fallback 600", got)
	}
}

func TestGetBool(t *testing.T) {
	t.Setenv("ROSTER_TEST_BOOL", "true")
	if !GetBool("ROSTER_TEST_BOOL", false) {
		t.Fatal("GetBool should honor a true value")
	}
	if GetBool("ROSTER_TEST_BOOL_UNSET", false) {
		t.Fatal("GetBool should fall back when unset")
	}
	t.Setenv("ROSTER_TEST_BOOL", "maybe")
	if GetBool("ROSTER_TEST_BOOL", false) {
		t.Fatal("GetBool should fall back on an invalid value")
	}
}

func TestLoadRosterConfigReadsMaintLockAndDryRun(t *testing.T) {
	t.Setenv("MAINT_LOCK_TTL_SECONDS", "120")
	t.Setenv("FIX_CAPACITY_DRY_RUN", "true")

	cfg := LoadRosterConfig()
	if cfg.MaintLockTTL != 2*time.Minute {
		t.Fatalf("MaintLockTTL = %s, want 2m", cfg.MaintLockTTL)
	}
	if !cfg.FixCapacityDryRun {
		t.Fatal("FixCapacityDryRun should be true")
	}
}
