package cert

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
)

// ErrAttestationSkipped is returned by backends that deliberately opt out.
var ErrAttestationSkipped = errors.New("cert: attestation skipped")

// AttestReceipt is the confirmation returned by an attestation backend.
type AttestReceipt struct {
	TransactionHash string
	BlockNumber     int64
	Network         string
}

// Attestor records a certificate fingerprint with an external service. The
// call is best-effort: a failure leaves the certificate fully valid and
// servable. Implementations must honor the context deadline.
type Attestor interface {
	Attest(ctx context.Context, c *Certificate, fingerprint string) (AttestReceipt, error)
}

// StubAttestor is a deterministic placeholder backend. It derives the
// transaction hash and block number from the fingerprint so repeated
// attestations of the same certificate agree, unlike the random values a
// real chain would assign.
type StubAttestor struct {
	Network string
}

var _ Attestor = (*StubAttestor)(nil)

func (s *StubAttestor) Attest(ctx context.Context, c *Certificate, fingerprint string) (AttestReceipt, error) {
	if err := ctx.Err(); err != nil {
		return AttestReceipt{}, err
	}
	network := s.Network
	if network == "" {
		network = "veridoc-testnet"
	}
	sum := sha256.Sum256([]byte(fingerprint + ":" + c.ID))
	block := int64(binary.BigEndian.Uint32(sum[:4]))
	return AttestReceipt{
		TransactionHash: "0x" + hex.EncodeToString(sum[:]),
		BlockNumber:     block,
		Network:         network,
	}, nil
}

// NoopAttestor skips attestation entirely. Certificates stay in
// AttestationPending, which is a fully valid end state.
type NoopAttestor struct{}

var _ Attestor = (*NoopAttestor)(nil)

func (NoopAttestor) Attest(ctx context.Context, c *Certificate, fingerprint string) (AttestReceipt, error) {
	return AttestReceipt{}, ErrAttestationSkipped
}
