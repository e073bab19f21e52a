package model

import "github.com/ethereum/go-ethereum/common"

// Asset is a fungible asset with a tracked supply.
type Asset struct {
	ID            common.Address `json:"id"`
	Supply        uint64         `json:"supply"`
	MintAuthority common.Address `json:"mint_authority"`
}

// TokenAccount holds one owner's balance of one asset.
type TokenAccount struct {
	Address common.Address `json:"address"`
	Owner   common.Address `json:"owner"`
	Asset   common.Address `json:"asset"`
	Amount  uint64         `json:"amount"`
}
