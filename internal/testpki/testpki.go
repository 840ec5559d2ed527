// Package testpki provides a temporary PKI with a time-stamp authority for
// signing tests.
package testpki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/digitorus/timestamp"
)

// KeyProfile defines the cryptographic settings for the PKI.
type KeyProfile string

const (
	RSA_2048   KeyProfile = "RSA_2048"
	ECDSA_P256 KeyProfile = "ECDSA_P256"
	ECDSA_P384 KeyProfile = "ECDSA_P384"
)

var oidExtKeyUsageTimeStamping = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 8}

// TestPKI manages a temporary PKI hierarchy for testing.
type TestPKI struct {
	T                *testing.T
	RootKey          crypto.Signer
	RootCert         *x509.Certificate
	IntermediateKey  crypto.Signer
	IntermediateCert *x509.Certificate
	Server           *httptest.Server
	Requests         int
	FailTSA          bool
	Profile          KeyProfile

	tsaKey  crypto.Signer
	tsaCert *x509.Certificate
}

// NewTestPKI creates a root and an intermediate CA.
func NewTestPKI(t *testing.T, profile KeyProfile) *TestPKI {
	rootKey := GenerateKey(t, profile)
	rootTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:   "PDFFill Test Root CA",
			Organization: []string{"PDFFill Test Org"},
		},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		SubjectKeyId:          []byte{1, 2, 3, 4},
	}
	rootCert := createCertificate(t, rootTemplate, rootTemplate, rootKey.Public(), rootKey)

	key := GenerateKey(t, profile)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject: pkix.Name{
			CommonName:   "PDFFill Test Intermediate CA",
			Organization: []string{"PDFFill Test Org"},
		},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLenZero:        true,
		SubjectKeyId:          []byte{5, 6, 7, 8},
		AuthorityKeyId:        rootCert.SubjectKeyId,
	}

	return &TestPKI{
		T:                t,
		RootKey:          rootKey,
		RootCert:         rootCert,
		IntermediateKey:  key,
		IntermediateCert: createCertificate(t, template, rootCert, key.Public(), rootKey),
		Profile:          profile,
	}
}

func createCertificate(t *testing.T, template, parent *x509.Certificate, pub crypto.PublicKey, priv crypto.Signer) *x509.Certificate {
	der, err := x509.CreateCertificate(rand.Reader, template, parent, pub, priv)
	if err != nil {
		t.Fatalf("failed to create certificate %q: %v", template.Subject.CommonName, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse certificate %q: %v", template.Subject.CommonName, err)
	}
	return cert
}

func serialNumber() *big.Int {
	n, _ := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	return n
}

// IssueLeaf generates a document signing certificate issued by the
// intermediate CA.
func (p *TestPKI) IssueLeaf(commonName string) (crypto.Signer, *x509.Certificate) {
	priv := GenerateKey(p.T, p.Profile)
	template := &x509.Certificate{
		SerialNumber: serialNumber(),
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"PDFFill Test Org"},
		},
		NotBefore:          time.Now().Add(-1 * time.Hour),
		NotAfter:           time.Now().Add(1 * time.Hour),
		KeyUsage:           x509.KeyUsageDigitalSignature,
		UnknownExtKeyUsage: []asn1.ObjectIdentifier{{1, 3, 6, 1, 5, 5, 7, 3, 36}},
	}
	return priv, createCertificate(p.T, template, p.IntermediateCert, priv.Public(), p.IntermediateKey)
}

// Chain returns the certificate chain for a leaf (Intermediate -> Root).
func (p *TestPKI) Chain() []*x509.Certificate {
	return []*x509.Certificate{p.IntermediateCert, p.RootCert}
}

// StartTSAServer starts a mock RFC 3161 time-stamp authority. It answers
// with an internal server error while FailTSA is set.
func (p *TestPKI) StartTSAServer() string {
	p.tsaKey = GenerateKey(p.T, p.Profile)
	eku, err := asn1.Marshal([]asn1.ObjectIdentifier{oidExtKeyUsageTimeStamping})
	if err != nil {
		p.T.Fatalf("failed to encode key usage: %v", err)
	}
	p.tsaCert = createCertificate(p.T, &x509.Certificate{
		SerialNumber: serialNumber(),
		Subject: pkix.Name{
			CommonName:   "PDFFill Test TSA",
			Organization: []string{"PDFFill Test Org"},
		},
		NotBefore: time.Now().Add(-1 * time.Hour),
		NotAfter:  time.Now().Add(24 * time.Hour),
		KeyUsage:  x509.KeyUsageDigitalSignature,
		ExtraExtensions: []pkix.Extension{
			{Id: asn1.ObjectIdentifier{2, 5, 29, 37}, Critical: true, Value: eku},
		},
	}, p.IntermediateCert, p.tsaKey.Public(), p.IntermediateKey)

	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.Requests++
		if p.FailTSA {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("tsa unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		req, err := timestamp.ParseRequest(body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		ts := timestamp.Timestamp{
			HashAlgorithm:     req.HashAlgorithm,
			HashedMessage:     req.HashedMessage,
			Time:              time.Now(),
			Nonce:             req.Nonce,
			Policy:            asn1.ObjectIdentifier{2, 4, 5, 6},
			Ordering:          true,
			Accuracy:          time.Second,
			SerialNumber:      serialNumber(),
			AddTSACertificate: req.Certificates,
		}
		resp, err := ts.CreateResponseWithOpts(p.tsaCert, p.tsaKey, crypto.SHA256)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/timestamp-reply")
		_, _ = w.Write(resp)
	}))
	return p.Server.URL
}

// Close stops the mock server.
func (p *TestPKI) Close() {
	if p.Server != nil {
		p.Server.Close()
	}
}

// WriteFiles writes the PEM encoded leaf certificate, its private key in
// PKCS #8 form and the chain into dir and returns their paths.
func (p *TestPKI) WriteFiles(dir string, key crypto.Signer, cert *x509.Certificate) (certPath, keyPath, chainPath string) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		p.T.Fatalf("failed to marshal key: %v", err)
	}

	certPath = filepath.Join(dir, "signer.crt")
	keyPath = filepath.Join(dir, "signer.key")
	chainPath = filepath.Join(dir, "chain.crt")

	writePEM(p.T, certPath, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	writePEM(p.T, keyPath, &pem.Block{Type: "PRIVATE KEY", Bytes: der})
	var blocks []*pem.Block
	for _, c := range p.Chain() {
		blocks = append(blocks, &pem.Block{Type: "CERTIFICATE", Bytes: c.Raw})
	}
	writePEM(p.T, chainPath, blocks...)
	return certPath, keyPath, chainPath
}

func writePEM(t *testing.T, path string, blocks ...*pem.Block) {
	var out []byte
	for _, b := range blocks {
		out = append(out, pem.EncodeToMemory(b)...)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// GenerateKey returns a new private key of the given profile.
func GenerateKey(t *testing.T, profile KeyProfile) crypto.Signer {
	var (
		k   crypto.Signer
		err error
	)
	switch profile {
	case RSA_2048:
		k, err = rsa.GenerateKey(rand.Reader, 2048)
	case ECDSA_P256:
		k, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case ECDSA_P384:
		k, err = ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	default:
		err = fmt.Errorf("unknown key profile: %s", profile)
	}
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return k
}
