package audit

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/lotbid/core"
	"github.com/cloudx-io/lotbid/dealapi"
)

func testSchedule() core.FeeSchedule {
	return core.FeeSchedule{
		Source: "sierra",
		Tiers: []core.FeeScheduleTier{
			{MinBid: 0, MaxBid: 2500, FeeType: core.FeeTypeFlat, Amount: 75},
			{MinBid: 2501, MaxBid: 100000, FeeType: core.FeeTypePercent, Amount: 3},
		},
	}
}

// solvedRecord solves a realistic scenario and wraps it in a record.
func solvedRecord(t *testing.T) *DecisionRecord {
	t.Helper()
	assumptions := core.DefaultAssumptions()
	ceiling := 4000.0
	assumptions.BidStrategy.AbsoluteMaxBid = &ceiling

	solution, err := core.SolveMaxBid(testSchedule(), assumptions, 6500)
	assert.Nil(t, err)

	record, err := NewDecisionRecord("lot-7", testSchedule(), assumptions, 6500, *solution)
	assert.Nil(t, err)
	return record
}

func TestNewDecisionRecord(t *testing.T) {
	record := solvedRecord(t)

	_, err := uuid.Parse(record.ID)
	check.Nil(t, err)
	check.Equal(t, "lot-7", record.RequestID)
	check.Equal(t, "sierra", record.Source)
	check.Equal(t, 64, len(record.HashNonce))
	check.Equal(t, core.ComputeFeeScheduleHash(record.FeeSchedule, record.HashNonce), record.FeeScheduleHash)
	check.Equal(t, core.ComputeAssumptionsHash(record.Assumptions, record.HashNonce), record.AssumptionsHash)
	check.True(t, record.CreatedAt > 0)
	check.Equal(t, record.CreatedAt, record.Timestamp().UnixMilli())

	// Each record gets its own ID and nonce.
	other := solvedRecord(t)
	check.NotEqual(t, record.ID, other.ID)
	check.NotEqual(t, record.HashNonce, other.HashNonce)
}

func TestSignAndVerifyDecision(t *testing.T) {
	signer, err := NewSigner()
	assert.Nil(t, err)
	record := solvedRecord(t)

	signed, err := signer.SignDecision(record)
	assert.Nil(t, err)
	check.True(t, len(signed) > 0)

	result, err := VerifyDecision(signed, signer.PublicKey)
	assert.Nil(t, err)
	check.True(t, result.SignatureValid)
	check.True(t, result.InputsHashValid)
	check.True(t, result.SolutionValid)
	check.True(t, result.IsValid())
	check.Equal(t, 3, len(result.ValidationDetails))

	assert.NotNil(t, result.Record)
	check.Equal(t, *record, *result.Record)
}

func TestParseDecision(t *testing.T) {
	signer, err := NewSigner()
	assert.Nil(t, err)
	record := solvedRecord(t)

	signed, err := signer.SignDecision(record)
	assert.Nil(t, err)

	parsed, err := ParseDecision(signed)
	assert.Nil(t, err)
	check.Equal(t, record.ID, parsed.ID)
	check.Equal(t, record.Solution, parsed.Solution)
	check.Equal(t, record.Assumptions, parsed.Assumptions)

	_, err = ParseDecision(nil)
	check.Error(t, err)

	_, err = ParseDecision(dealapi.SignedDecision([]byte("not cbor")))
	check.Error(t, err)
}

func TestVerifyDecision_WrongKey(t *testing.T) {
	signer, err := NewSigner()
	assert.Nil(t, err)
	other, err := NewSigner()
	assert.Nil(t, err)

	signed, err := signer.SignDecision(solvedRecord(t))
	assert.Nil(t, err)

	result, err := VerifyDecision(signed, other.PublicKey)
	assert.Nil(t, err)
	check.False(t, result.SignatureValid)
	check.True(t, result.InputsHashValid)
	check.True(t, result.SolutionValid)
	check.False(t, result.IsValid())
}

func TestVerifyDecision_TamperedPayload(t *testing.T) {
	signer, err := NewSigner()
	assert.Nil(t, err)

	signed, err := signer.SignDecision(solvedRecord(t))
	assert.Nil(t, err)

	// Swap the payload for a record with a higher bid, keeping the original signature.
	var msg cose.Sign1Message
	assert.Nil(t, msg.UnmarshalCBOR(signed))
	record, err := unmarshalRecord(msg.Payload)
	assert.Nil(t, err)
	record.Solution.MaxBid += 500
	msg.Payload, err = record.marshal()
	assert.Nil(t, err)
	tampered, err := msg.MarshalCBOR()
	assert.Nil(t, err)

	result, err := VerifyDecision(dealapi.SignedDecision(tampered), signer.PublicKey)
	assert.Nil(t, err)
	check.False(t, result.SignatureValid)
	check.False(t, result.SolutionValid)
	check.False(t, result.IsValid())
}

func TestVerifyDecision_SignedButWrongSolution(t *testing.T) {
	signer, err := NewSigner()
	assert.Nil(t, err)

	record := solvedRecord(t)
	record.Solution.MaxBid = 4500
	signed, err := signer.SignDecision(record)
	assert.Nil(t, err)

	result, err := VerifyDecision(signed, signer.PublicKey)
	assert.Nil(t, err)
	check.True(t, result.SignatureValid)
	check.True(t, result.InputsHashValid)
	check.False(t, result.SolutionValid)
	check.True(t, strings.Contains(strings.Join(result.ValidationDetails, "\n"), "Solution mismatch"))
}

func TestVerifyDecision_InputsChangedAfterHashing(t *testing.T) {
	signer, err := NewSigner()
	assert.Nil(t, err)

	record := solvedRecord(t)
	record.FeeSchedule.Tiers[0].Amount = 50
	signed, err := signer.SignDecision(record)
	assert.Nil(t, err)

	result, err := VerifyDecision(signed, signer.PublicKey)
	assert.Nil(t, err)
	check.True(t, result.SignatureValid)
	check.False(t, result.InputsHashValid)
	check.False(t, result.IsValid())
}

func TestVerifyDecision_Errors(t *testing.T) {
	signer, err := NewSigner()
	assert.Nil(t, err)

	_, err = VerifyDecision(nil, signer.PublicKey)
	check.Error(t, err)

	_, err = VerifyDecision(dealapi.SignedDecision([]byte{0x01, 0x02}), signer.PublicKey)
	check.Error(t, err)

	signed, err := signer.SignDecision(solvedRecord(t))
	assert.Nil(t, err)
	_, err = VerifyDecision(signed, nil)
	check.Error(t, err)

	_, err = signer.SignDecision(nil)
	check.Error(t, err)
}

func TestSignedDecision_SurvivesTextEncodings(t *testing.T) {
	signer, err := NewSigner()
	assert.Nil(t, err)
	signed, err := signer.SignDecision(solvedRecord(t))
	assert.Nil(t, err)

	compressed, err := signed.CompressGzip()
	assert.Nil(t, err)
	decoded, err := dealapi.ParseSignedDecision(compressed.String())
	assert.Nil(t, err)

	result, err := VerifyDecision(decoded, signer.PublicKey)
	assert.Nil(t, err)
	check.True(t, result.IsValid())
}

func TestPublicKeyPEM_RoundTrip(t *testing.T) {
	signer, err := NewSigner()
	assert.Nil(t, err)

	pemText, err := signer.PublicKeyPEM()
	assert.Nil(t, err)
	check.True(t, strings.HasPrefix(pemText, "-----BEGIN PUBLIC KEY-----"))

	parsed, err := ParsePublicKeyPEM(pemText)
	assert.Nil(t, err)
	check.True(t, parsed.Equal(signer.PublicKey))

	_, err = ParsePublicKeyPEM("not a pem")
	check.Error(t, err)
}

func TestNewSignerFromPEM(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	assert.Nil(t, err)

	sec1, err := x509.MarshalECPrivateKey(key)
	assert.Nil(t, err)
	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	assert.Nil(t, err)

	for _, block := range []*pem.Block{
		{Type: "EC PRIVATE KEY", Bytes: sec1},
		{Type: "PRIVATE KEY", Bytes: pkcs8},
	} {
		signer, err := NewSignerFromPEM(pem.EncodeToMemory(block))
		assert.Nil(t, err)
		check.True(t, signer.PublicKey.Equal(&key.PublicKey))
		check.Equal(t, 16, len(signer.KeyID()))
	}
}

func TestNewSignerFromPEM_Rejects(t *testing.T) {
	_, err := NewSignerFromPEM([]byte("garbage"))
	check.Error(t, err)

	p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	assert.Nil(t, err)
	der, err := x509.MarshalECPrivateKey(p384)
	assert.Nil(t, err)
	_, err = NewSignerFromPEM(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
	check.Error(t, err)

	_, err = NewSignerFromPEM(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1}}))
	check.Error(t, err)
}

func TestLoadSigner(t *testing.T) {
	ephemeral, err := LoadSigner("")
	assert.Nil(t, err)
	check.NotNil(t, ephemeral.PublicKey)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	assert.Nil(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	assert.Nil(t, err)

	path := filepath.Join(t.TempDir(), "signing.pem")
	assert.Nil(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), 0o600))

	loaded, err := LoadSigner(path)
	assert.Nil(t, err)
	check.True(t, loaded.PublicKey.Equal(&key.PublicKey))

	_, err = LoadSigner(filepath.Join(t.TempDir(), "missing.pem"))
	check.Error(t, err)
}
