package models

import (
	"testing"
)

func TestNewAlertMetadata(t *testing.T) {
	metadata := NewAlertMetadata("203.0.113.7", 27, 9)

	if metadata["ip_address"] != "203.0.113.7" {
		t.Errorf("expected ip_address 203.0.113.7, got %v", metadata["ip_address"])
	}
	if metadata["attempt_count"] != 27 {
		t.Errorf("expected attempt_count 27, got %v", metadata["attempt_count"])
	}
	if metadata["distinct_identifiers"] != 9 {
		t.Errorf("expected distinct_identifiers 9, got %v", metadata["distinct_identifiers"])
	}
}

func TestMetadata_ScanNil(t *testing.T) {
	var m Metadata
	if err := m.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) = %v, want nil", err)
	}
	if m == nil {
		t.Error("expected Scan(nil) to initialize an empty map")
	}
}

func TestMetadata_ValueNil(t *testing.T) {
	var m Metadata
	v, err := m.Value()
	if err != nil {
		t.Fatalf("Value() = %v, want nil error", err)
	}
	if v != nil {
		t.Errorf("expected nil driver value for nil metadata, got %v", v)
	}
}
