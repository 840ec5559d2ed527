package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"

	"github.com/digitorus/pdffill/config"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfig(t *testing.T) {
	const configContent = `
verbose = true
font = "fonts/FreeSans.ttf"

[info]
Producer = "Example University"

[issuer]
name = "Example University"
address = "mx8x6VcTXnWwKeyaM8dXQhHcsbUysWVVVY"

[[issuer.verification]]
method = "domain"
url = "https://example.edu"

[[metadata_fields]]
name = "name"
[metadata_fields.properties]
label = "Name"

[global_fields]
course = "Go 101"

[sign]
cert = "signer.crt"
key = "signer.key"
tsa = "https://freetsa.org/tsr"
`

	var c config.Config
	if _, err := toml.Decode(configContent, &c); err != nil {
		t.Error(err)
	}

	// Root
	assert.True(t, c.Verbose)
	assert.Equal(t, "fonts/FreeSans.ttf", c.Font)
	assert.Equal(t, "Example University", c.Info["Producer"])

	// Issuer
	if assert.NotNil(t, c.Issuer) {
		assert.Equal(t, "Example University", c.Issuer.Name)
		assert.Equal(t, "mx8x6VcTXnWwKeyaM8dXQhHcsbUysWVVVY", c.Issuer.Address)
		assert.Len(t, c.Issuer.Verification, 1)
		assert.Equal(t, "domain", c.Issuer.Verification[0]["method"])
	}

	// Metadata
	assert.Len(t, c.MetadataFields, 1)
	assert.Equal(t, "name", c.MetadataFields[0].Name)
	assert.Equal(t, "Name", c.MetadataFields[0].Properties["label"])
	assert.Equal(t, "Go 101", c.GlobalFields["course"])

	// Sign
	if assert.NotNil(t, c.Sign) {
		assert.Equal(t, "signer.crt", c.Sign.Cert)
		assert.Equal(t, "signer.key", c.Sign.Key)
		assert.Empty(t, c.Sign.Chain)
	}

	assert.NoError(t, c.ValidateFields())
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		valid   bool
	}{
		{name: "empty", content: ``, valid: true},
		{name: "issuer without address", content: "[issuer]\nname = \"Example\"\n"},
		{name: "sign without key", content: "[sign]\ncert = \"signer.crt\"\n"},
		{name: "invalid tsa", content: "[sign]\ncert = \"a\"\nkey = \"b\"\ntsa = \"not a url\"\n"},
		{name: "unnamed metadata field", content: "[[metadata_fields]]\nname = \" \"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c config.Config
			if _, err := toml.Decode(tt.content, &c); err != nil {
				t.Fatal(err)
			}
			err := c.ValidateFields()
			if tt.valid {
				assert.Nil(t, err)
			} else {
				assert.NotNil(t, err)
			}
		})
	}
}

func TestRead(t *testing.T) {
	path := writeConfig(t, "pdffill.conf", "verbose = true\n[info]\nSubject = \"Certificate\"\n")
	c, err := config.Read(path)
	if assert.NoError(t, err) {
		assert.True(t, c.Verbose)
		assert.Equal(t, "Certificate", c.Info["Subject"])
	}

	path = writeConfig(t, "pdffill.yaml", `
font: FreeSans.ttf
issuer:
  name: Example University
  address: mx8x6VcTXnWwKeyaM8dXQhHcsbUysWVVVY
  verification:
    - method: domain
metadata_fields:
  - name: grade
    properties:
      label: Grade
`)
	c, err = config.Read(path)
	if assert.NoError(t, err) {
		assert.Equal(t, "FreeSans.ttf", c.Font)
		assert.Equal(t, "Example University", c.Issuer.Name)
		assert.Equal(t, "domain", c.Issuer.Verification[0]["method"])
		assert.Equal(t, "Grade", c.MetadataFields[0].Properties["label"])
	}

	_, err = config.Read(writeConfig(t, "empty.yml", ""))
	assert.NoError(t, err)
}

func TestReadErrors(t *testing.T) {
	_, err := config.Read(filepath.Join(t.TempDir(), "missing.conf"))
	assert.Error(t, err)

	_, err = config.Read(writeConfig(t, "bad.conf", "verbose = "))
	assert.Error(t, err)

	_, err = config.Read(writeConfig(t, "unknown.conf", "colour = \"red\"\n"))
	assert.ErrorContains(t, err, "colour")

	_, err = config.Read(writeConfig(t, "unknown.yaml", "colour: red\n"))
	assert.Error(t, err)

	_, err = config.Read(writeConfig(t, "invalid.conf", "[sign]\ncert = \"signer.crt\"\n"))
	assert.ErrorContains(t, err, "config is not valid")
}
