package idempotency

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

const (
	specIDPrefixV1      = "spec"
	incentiveIDPrefixV1 = "incentive"
)

// SpecIDV1 computes the canonical spec id.
//
// Spec:
//
//	specId = keccak256("spec" || contentHash || target || chainIdBE8 || creator || commitUnixBE8)
//
// Including the originating commitment's timestamp guarantees a distinct id per
// reveal even when the same content hash is committed more than once for the
// same target.
func SpecIDV1(contentHash common.Hash, target common.Address, chainID uint64, creator common.Address, commitUnix int64) common.Hash {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(specIDPrefixV1))
	_, _ = h.Write(contentHash[:])
	_, _ = h.Write(target[:])

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], chainID)
	_, _ = h.Write(buf[:])
	_, _ = h.Write(creator[:])
	binary.BigEndian.PutUint64(buf[:], uint64(commitUnix))
	_, _ = h.Write(buf[:])

	return common.BytesToHash(h.Sum(nil))
}

// IncentiveIDV1 computes the canonical incentive id.
//
// Spec:
//
//	incentiveId = keccak256("incentive" || creator || target || chainIdBE8 || createdUnixBE8 || seqBE8)
//
// seq is the creator's incentive count at creation time, which disambiguates
// multiple contributions by the same creator in the same second.
func IncentiveIDV1(creator, target common.Address, chainID uint64, createdUnix int64, seq uint64) common.Hash {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(incentiveIDPrefixV1))
	_, _ = h.Write(creator[:])
	_, _ = h.Write(target[:])

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], chainID)
	_, _ = h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(createdUnix))
	_, _ = h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], seq)
	_, _ = h.Write(buf[:])

	return common.BytesToHash(h.Sum(nil))
}

// ContentHashV1 hashes a revealed metadata payload.
func ContentHashV1(payload []byte) common.Hash {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(payload)
	return common.BytesToHash(h.Sum(nil))
}
