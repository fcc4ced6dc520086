package receipt

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/veraison/go-cose"

	"github.com/cloudx-io/auctionconsole/core"
)

// Signer holds the console's receipt signing key (ECDSA P-256, ES256).
type Signer struct {
	privateKey *ecdsa.PrivateKey // Keep private - sensitive!
	PublicKey  *ecdsa.PublicKey
	signer     cose.Signer
}

// NewSigner generates a fresh key pair.
func NewSigner() (*Signer, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}
	return newSigner(privateKey)
}

// NewSignerFromPEM loads a PKCS#8 or SEC 1 encoded P-256 private key.
func NewSignerFromPEM(data []byte) (*Signer, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
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
			return nil, fmt.Errorf("parse PKCS#8 private key: %w", err)
		}
		ecKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is %T, not ECDSA", key)
		}
		privateKey = ecKey
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}

	if privateKey.Curve != elliptic.P256() {
		return nil, fmt.Errorf("unsupported curve %s: ES256 requires P-256", privateKey.Curve.Params().Name)
	}
	return newSigner(privateKey)
}

func newSigner(privateKey *ecdsa.PrivateKey) (*Signer, error) {
	signer, err := cose.NewSigner(cose.AlgorithmES256, privateKey)
	if err != nil {
		return nil, fmt.Errorf("create COSE signer: %w", err)
	}
	return &Signer{
		privateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
		signer:     signer,
	}, nil
}

// PrivateKeyPEM returns the private key in PKCS#8 PEM format.
func (s *Signer) PrivateKeyPEM() (string, error) {
	derBytes, err := x509.MarshalPKCS8PrivateKey(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal private key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: derBytes})), nil
}

// PublicKeyPEM returns the public key in PEM format.
func (s *Signer) PublicKeyPEM() (string, error) {
	return EncodePublicKeyPEM(s.PublicKey)
}

// EncodePublicKeyPEM marshals key to PKIX and wraps it in a PEM block.
func EncodePublicKeyPEM(key *ecdsa.PublicKey) (string, error) {
	derBytes, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: derBytes})), nil
}

// ParsePublicKeyPEM reads an ECDSA public key from a PEM "PUBLIC KEY" block.
func ParsePublicKeyPEM(data []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	ecKey, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, not ECDSA", key)
	}
	return ecKey, nil
}

// Issue signs the outcome of a finalized lot and returns the untagged
// COSE_Sign1 bytes.
func (s *Signer) Issue(meta core.AuctionMeta, lot *core.Lot) ([]byte, error) {
	payload, err := NewPayload(meta, lot)
	if err != nil {
		return nil, err
	}
	return s.Sign(payload)
}

// Sign wraps an already built payload in a COSE_Sign1 message.
func (s *Signer) Sign(payload Payload) ([]byte, error) {
	data, err := payload.Marshal()
	if err != nil {
		return nil, err
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmES256)
	msg.Headers.Unprotected[cose.HeaderLabelContentType] = contentType
	msg.Payload = data

	if err := msg.Sign(rand.Reader, nil, s.signer); err != nil {
		return nil, fmt.Errorf("sign receipt: %w", err)
	}

	coseBytes, err := (*cose.UntaggedSign1Message)(msg).MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("marshal COSE_Sign1: %w", err)
	}
	return coseBytes, nil
}

const contentType = "application/cbor"
