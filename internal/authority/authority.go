// Package authority derives pool-owned signing capabilities from public
// identifiers and a stored salt. No key material is ever persisted: the same
// (tag, seed, salt) always yields the same capability.
package authority

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Domain tags separating the derived identities used by the engine.
const (
	PoolTag    = "config"
	ShareTag   = "lp"
	AccountTag = "account"
)

// Capability authorizes transfers out of accounts owned by a derived address.
type Capability struct {
	seeds   []byte
	address common.Address
}

// Address returns the derived address the capability signs for.
func (c Capability) Address() common.Address {
	return c.address
}

// Seeds returns a copy of the derivation bytes: tag || parts || salt.
func (c Capability) Seeds() []byte {
	out := make([]byte, len(c.seeds))
	copy(out, c.seeds)
	return out
}

func (c Capability) String() string {
	return c.address.Hex()
}

// Derive builds the capability for tag || parts... || salt.
func Derive(tag string, salt uint8, parts ...[]byte) Capability {
	size := len(tag) + 1
	for _, p := range parts {
		size += len(p)
	}
	seeds := make([]byte, 0, size)
	seeds = append(seeds, tag...)
	for _, p := range parts {
		seeds = append(seeds, p...)
	}
	seeds = append(seeds, salt)

	return Capability{
		seeds:   seeds,
		address: common.BytesToAddress(crypto.Keccak256(seeds)),
	}
}

// SeedBytes encodes a pool seed the way it enters the derivation.
func SeedBytes(seed uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], seed)
	return b[:]
}

// PoolAuthority re-derives the authority that owns a pool's reserves.
func PoolAuthority(seed uint64, salt uint8) Capability {
	return Derive(PoolTag, salt, SeedBytes(seed))
}

// ShareMint re-derives the share asset id (and its mint authority seeds) of a pool.
func ShareMint(pool common.Address, salt uint8) Capability {
	return Derive(ShareTag, salt, pool.Bytes())
}

// FindPoolAuthority returns the canonical salt for seed and its capability.
func FindPoolAuthority(seed uint64) (Capability, uint8, error) {
	return find(func(salt uint8) Capability { return PoolAuthority(seed, salt) })
}

// FindShareMint returns the canonical salt for a pool's share asset.
func FindShareMint(pool common.Address) (Capability, uint8, error) {
	return find(func(salt uint8) Capability { return ShareMint(pool, salt) })
}

// AssociatedAccount is the token account address of owner for asset.
func AssociatedAccount(owner, asset common.Address) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(AccountTag), owner.Bytes(), asset.Bytes()))
}

// Salts are tried from 255 down; a salt is canonical when the top bit of the
// derived digest is clear.
func find(derive func(salt uint8) Capability) (Capability, uint8, error) {
	for s := 255; s >= 0; s-- {
		salt := uint8(s)
		c := derive(salt)
		if isCanonical(c.seeds) {
			return c, salt, nil
		}
	}
	return Capability{}, 0, fmt.Errorf("no canonical salt found")
}

func isCanonical(seeds []byte) bool {
	return crypto.Keccak256(seeds)[0]&0x80 == 0
}

// IsCanonical reports whether salt is the canonical salt for a pool seed.
func IsCanonical(seed uint64, salt uint8) bool {
	found, canonical, err := FindPoolAuthority(seed)
	if err != nil {
		return false
	}
	return canonical == salt && found.Address() == PoolAuthority(seed, salt).Address()
}
