package pdffill

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMetadataInfo(t *testing.T) {
	m := &Metadata{
		Issuer: Issuer{
			Name: "Example University",
			Identity: Identity{
				Address:      "mx8x6VcTXnWwKeyaM8dXQhHcsbUysWVVVY",
				Verification: []map[string]any{{"method": "domain", "url": "https://example.edu"}},
			},
		},
		Columns: []MetadataColumn{
			{Name: "name", Properties: map[string]any{"label": "Name", "order": 1}},
			{Name: "grade", Properties: map[string]any{"label": "Grade"}},
			{Name: "missing", Properties: map[string]any{"label": "Missing"}},
		},
		Global: map[string]any{
			"grade":  "n/a",
			"course": map[string]any{"label": "Course", "value": "Go 101"},
		},
	}

	info, err := m.Info(map[string]string{"name": "Jane Doe", "grade": "A"})
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}

	if info["version"] != "1" || info["chainpoint_proof"] != "" {
		t.Errorf("version = %q, chainpoint_proof = %q", info["version"], info["chainpoint_proof"])
	}
	if _, ok := info["chainpoint_proof"]; !ok {
		t.Error("chainpoint_proof entry missing")
	}

	var issuer map[string]any
	if err := json.Unmarshal([]byte(info["issuer"]), &issuer); err != nil {
		t.Fatalf("issuer is not JSON: %v", err)
	}
	wantIssuer := map[string]any{
		"name": "Example University",
		"identity": map[string]any{
			"address":      "mx8x6VcTXnWwKeyaM8dXQhHcsbUysWVVVY",
			"verification": []any{map[string]any{"method": "domain", "url": "https://example.edu"}},
		},
	}
	if diff := cmp.Diff(wantIssuer, issuer); diff != "" {
		t.Errorf("issuer mismatch (-want +got):\n%s", diff)
	}

	var metadata map[string]any
	if err := json.Unmarshal([]byte(info["metadata"]), &metadata); err != nil {
		t.Fatalf("metadata is not JSON: %v", err)
	}
	wantMetadata := map[string]any{
		"name":   map[string]any{"label": "Name", "order": float64(1), "value": "Jane Doe"},
		"grade":  "n/a",
		"course": map[string]any{"label": "Course", "value": "Go 101"},
	}
	if diff := cmp.Diff(wantMetadata, metadata); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestMetadataInfoEmpty(t *testing.T) {
	info, err := (&Metadata{}).Info(nil)
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	want := map[string]string{
		"version":          "1",
		"issuer":           `{"name":"","identity":{"address":"","verification":[]}}`,
		"metadata":         `{}`,
		"chainpoint_proof": "",
	}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("Info() mismatch (-want +got):\n%s", diff)
	}
}
