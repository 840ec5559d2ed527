package pdffill

import (
	"encoding/json"
	"fmt"
)

// MetadataVersion is the version of the certificate metadata layout.
const MetadataVersion = 1

// Issuer identifies the issuing organisation of a certificate.
type Issuer struct {
	Name     string   `json:"name"`
	Identity Identity `json:"identity"`
}

// Identity holds the address of an issuer and the methods to verify it.
type Identity struct {
	Address      string           `json:"address"`
	Verification []map[string]any `json:"verification"`
}

// MetadataColumn copies a field value into the certificate metadata,
// together with descriptive properties such as a label or an order.
type MetadataColumn struct {
	Name       string
	Properties map[string]any
}

// Metadata describes the certificate metadata stored in the document
// information dictionary.
type Metadata struct {
	Issuer  Issuer
	Columns []MetadataColumn

	// Global entries are added to every certificate and replace column
	// entries of the same name.
	Global map[string]any
}

// Info returns the information dictionary entries for a certificate filled
// with values: version, issuer and metadata as JSON and an empty
// chainpoint_proof that is completed once the certificate is anchored.
func (m *Metadata) Info(values map[string]string) (map[string]string, error) {
	issuer := m.Issuer
	if issuer.Identity.Verification == nil {
		issuer.Identity.Verification = []map[string]any{}
	}
	issuerJSON, err := json.Marshal(issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to encode issuer: %w", err)
	}

	metadata := make(map[string]any)
	for _, c := range m.Columns {
		value, ok := values[c.Name]
		if !ok {
			continue
		}
		entry := make(map[string]any, len(c.Properties)+1)
		for k, v := range c.Properties {
			entry[k] = v
		}
		entry["value"] = value
		metadata[c.Name] = entry
	}
	for k, v := range m.Global {
		metadata[k] = v
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	return map[string]string{
		"version":          fmt.Sprint(MetadataVersion),
		"issuer":           string(issuerJSON),
		"metadata":         string(metadataJSON),
		"chainpoint_proof": "",
	}, nil
}
