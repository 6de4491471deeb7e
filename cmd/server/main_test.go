package main

import (
	"testing"
	"time"
)

func TestParseFlagsDefaultsLeaveOverridesUnset(t *testing.T) {
	overrides, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags returned error: %v", err)
	}

	if overrides.Port != nil || overrides.DeliveryOptions != nil {
		t.Fatalf("expected string overrides to be unset, got %+v", overrides)
	}
	if overrides.RateLimitRPS != nil || overrides.RateLimitBurst != nil {
		t.Fatalf("expected rate limit overrides to be unset")
	}
	if overrides.SearchMaxNodes != nil || overrides.SearchTimeout != nil {
		t.Fatalf("expected search overrides to be unset")
	}
}

func TestParseFlagsAppliesValues(t *testing.T) {
	overrides, err := parseFlags([]string{
		"--config", "splitter.yaml",
		"--port", "9000",
		"--delivery-options", "config.json",
		"--rate-limit-rps", "0",
		"--search-max-nodes", "5000",
		"--search-timeout", "750ms",
	})
	if err != nil {
		t.Fatalf("parseFlags returned error: %v", err)
	}

	if overrides.ConfigFile != "splitter.yaml" {
		t.Fatalf("unexpected config file %q", overrides.ConfigFile)
	}
	if overrides.Port == nil || *overrides.Port != "9000" {
		t.Fatalf("expected port override")
	}
	if overrides.DeliveryOptions == nil || *overrides.DeliveryOptions != "config.json" {
		t.Fatalf("expected delivery options override")
	}
	if overrides.RateLimitRPS == nil || *overrides.RateLimitRPS != 0 {
		t.Fatalf("expected zero rate limit to be an explicit override")
	}
	if overrides.SearchMaxNodes == nil || *overrides.SearchMaxNodes != 5000 {
		t.Fatalf("expected search node override")
	}
	if overrides.SearchTimeout == nil || *overrides.SearchTimeout != 750*time.Millisecond {
		t.Fatalf("expected search timeout override")
	}
}

func TestParseFlagsRejectsUnknownFlags(t *testing.T) {
	if _, err := parseFlags([]string{"--pack-sizes", "250"}); err == nil {
		t.Fatalf("expected error for unknown flag")
	}
}
