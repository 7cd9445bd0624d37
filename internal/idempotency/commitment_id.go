package idempotency

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

const (
	commitmentIDPrefixV1 = "commitment"
	blindedHashPrefixV1  = "blinded"
)

// CommitmentIDV1 computes the canonical commitment id.
//
// Spec:
//
//	commitmentId = keccak256("commitment" || blindedHash || committer || target || chainIdBE8 || commitUnixBE8)
//
// The id is a pure function of the creation-time inputs, including the commit
// timestamp in unix seconds. Callers that want to recompute it off-chain must
// use the exact timestamp recorded at commit; every mutating call also returns
// and emits the id so recomputation is never required.
func CommitmentIDV1(blindedHash common.Hash, committer, target common.Address, chainID uint64, commitUnix int64) common.Hash {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(commitmentIDPrefixV1))
	_, _ = h.Write(blindedHash[:])
	_, _ = h.Write(committer[:])
	_, _ = h.Write(target[:])

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], chainID)
	_, _ = h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(commitUnix))
	_, _ = h.Write(buf[:])

	return common.BytesToHash(h.Sum(nil))
}

// BlindedHashV1 computes the blinding value disclosed at reveal time.
//
// Spec:
//
//	blindedHash = keccak256("blinded" || verificationHash || nonce)
//
// The nonce keeps the verification hash concealed in the commit transaction so
// observers cannot front-run the reveal even when the metadata content is
// guessable.
func BlindedHashV1(verificationHash, nonce common.Hash) common.Hash {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(blindedHashPrefixV1))
	_, _ = h.Write(verificationHash[:])
	_, _ = h.Write(nonce[:])
	return common.BytesToHash(h.Sum(nil))
}
