package model

import "github.com/ethereum/go-ethereum/common"

// Pool is the durable configuration of one trading pair. It is keyed by the
// pool's derived authority address, which also owns both reserve accounts.
type Pool struct {
	Address       common.Address `json:"address"`
	Seed          uint64         `json:"seed"`
	AssetX        common.Address `json:"asset_x"`
	AssetY        common.Address `json:"asset_y"`
	ShareAsset    common.Address `json:"share_asset"`
	FeeBps        uint16         `json:"fee_bps"`
	Locked        bool           `json:"locked"`
	AuthoritySalt uint8          `json:"authority_salt"`
	ShareSalt     uint8          `json:"share_salt"`
	Admin         common.Address `json:"admin"`
}

// HasAdmin reports whether the pool can be locked and unlocked.
func (p Pool) HasAdmin() bool {
	return p.Admin != (common.Address{})
}

// PoolSnapshot captures reserves and share supply read in one transaction.
type PoolSnapshot struct {
	Pool        Pool   `json:"pool"`
	ReserveX    uint64 `json:"reserve_x"`
	ReserveY    uint64 `json:"reserve_y"`
	ShareSupply uint64 `json:"share_supply"`
}
