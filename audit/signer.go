package audit

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/veraison/go-cose"

	"github.com/cloudx-io/lotbid/dealapi"
)

// SignatureAlgorithm is the COSE algorithm of every signed decision.
const SignatureAlgorithm = "ES256"

// Signer signs decision records with an ECDSA P-256 key.
type Signer struct {
	privateKey *ecdsa.PrivateKey // Keep private - sensitive!
	PublicKey  *ecdsa.PublicKey
	keyID      []byte
}

// NewSigner creates a Signer with a freshly generated key.
func NewSigner() (*Signer, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return newSigner(privateKey)
}

// NewSignerFromPEM loads a P-256 private key in SEC 1 ("EC PRIVATE KEY") or PKCS #8 form.
func NewSignerFromPEM(pemData []byte) (*Signer, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in signing key")
	}

	var privateKey *ecdsa.PrivateKey
	switch block.Type {
	case "EC PRIVATE KEY":
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse EC private key: %w", err)
		}
		privateKey = key
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKCS8 private key: %w", err)
		}
		ecKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("signing key is not ECDSA")
		}
		privateKey = ecKey
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}

	if privateKey.Curve != elliptic.P256() {
		return nil, fmt.Errorf("signing key must use curve P-256, got %s", privateKey.Curve.Params().Name)
	}
	return newSigner(privateKey)
}

// LoadSigner reads the key at path, or generates an ephemeral key when path is empty.
func LoadSigner(path string) (*Signer, error) {
	if path == "" {
		return NewSigner()
	}
	pemData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	return NewSignerFromPEM(pemData)
}

func newSigner(privateKey *ecdsa.PrivateKey) (*Signer, error) {
	derBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	fingerprint := sha256.Sum256(derBytes)

	return &Signer{
		privateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
		keyID:      fingerprint[:8],
	}, nil
}

// KeyID is the hex fingerprint placed in the unprotected header of each signature.
func (s *Signer) KeyID() string {
	return hex.EncodeToString(s.keyID)
}

// PublicKeyPEM returns the public key in PEM format
func (s *Signer) PublicKeyPEM() (string, error) {
	derBytes, err := x509.MarshalPKIXPublicKey(s.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}

	pemBlock := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: derBytes,
	}
	return string(pem.EncodeToMemory(pemBlock)), nil
}

// SignDecision encodes record as CBOR and wraps it in a COSE_Sign1 message.
func (s *Signer) SignDecision(record *DecisionRecord) (dealapi.SignedDecision, error) {
	if record == nil {
		return nil, fmt.Errorf("decision record is nil")
	}

	payload, err := record.marshal()
	if err != nil {
		return nil, err
	}

	signer, err := cose.NewSigner(cose.AlgorithmES256, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmES256)
	msg.Headers.Unprotected[cose.HeaderLabelKeyID] = s.keyID
	msg.Payload = payload

	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("sign decision: %w", err)
	}

	signed, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("marshal COSE_Sign1: %w", err)
	}
	return dealapi.SignedDecision(signed), nil
}

// ParsePublicKeyPEM parses a PKIX "PUBLIC KEY" block holding an ECDSA key.
func ParsePublicKeyPEM(pemData string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in public key")
	}
	if block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	ecKey, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not ECDSA")
	}
	return ecKey, nil
}
