package attest

import (
	"context"
	"crypto"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/digitorus/pkcs7"
	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var (
	oidSigningCertificateV2 = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 47}
	oidTimeStampToken       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 14}
)

// SignOptions configures a detached signature.
type SignOptions struct {
	Certificate *x509.Certificate
	Signer      crypto.Signer

	// Chain holds the certificates of the chain without the signing
	// certificate itself.
	Chain []*x509.Certificate

	// TSA is the URL of an RFC 3161 time-stamp authority. When set the
	// signature carries a timestamp token over its signature value.
	TSA string

	// Client is used for TSA requests, http.DefaultClient when nil.
	Client *http.Client
}

// SignDetached returns a DER encoded CMS SignedData structure over content
// that does not include the content itself.
func SignDetached(ctx context.Context, content []byte, opts SignOptions) ([]byte, error) {
	if opts.Certificate == nil || opts.Signer == nil {
		return nil, errors.New("signing requires a certificate and a private key")
	}

	signedData, err := pkcs7.NewSignedData(content)
	if err != nil {
		return nil, fmt.Errorf("new signed data: %w", err)
	}
	signedData.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)

	signingCertificate, err := signingCertificateAttribute(opts.Certificate)
	if err != nil {
		return nil, fmt.Errorf("signing certificate attribute: %w", err)
	}
	config := pkcs7.SignerInfoConfig{
		ExtraSignedAttributes: []pkcs7.Attribute{*signingCertificate},
	}
	if err := signedData.AddSignerChain(opts.Certificate, opts.Signer, opts.Chain, config); err != nil {
		return nil, fmt.Errorf("add signer chain: %w", err)
	}
	signedData.Detach()

	if opts.TSA != "" {
		sd := signedData.GetSignedData()
		token, err := Timestamp(ctx, opts.Client, opts.TSA, sd.SignerInfos[0].EncryptedDigest)
		if err != nil {
			return nil, fmt.Errorf("get timestamp: %w", err)
		}
		attr := pkcs7.Attribute{
			Type:  oidTimeStampToken,
			Value: asn1.RawValue{FullBytes: token},
		}
		if err := sd.SignerInfos[0].SetUnauthenticatedAttributes([]pkcs7.Attribute{attr}); err != nil {
			return nil, err
		}
	}

	return signedData.Finish()
}

// SignFile signs the file at path and writes the signature to path.p7s. It
// returns the path of the signature.
func SignFile(ctx context.Context, path string, opts SignOptions) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	signature, err := SignDetached(ctx, content, opts)
	if err != nil {
		return "", err
	}
	out := path + ".p7s"
	if err := os.WriteFile(out, signature, 0o644); err != nil {
		return "", fmt.Errorf("failed to write signature: %w", err)
	}
	return out, nil
}

// signingCertificateAttribute binds the signing certificate to the
// signature through an ESS SigningCertificateV2 attribute with a SHA-256
// certificate hash.
func signingCertificateAttribute(cert *x509.Certificate) (*pkcs7.Attribute, error) {
	hash := sha256.Sum256(cert.Raw)

	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // SigningCertificateV2
		b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // []ESSCertIDv2
			b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // ESSCertIDv2
				b.AddASN1OctetString(hash[:]) // certHash, default SHA-256
			})
		})
	})

	sse, err := b.Bytes()
	if err != nil {
		return nil, err
	}
	return &pkcs7.Attribute{
		Type:  oidSigningCertificateV2,
		Value: asn1.RawValue{FullBytes: sse},
	}, nil
}
