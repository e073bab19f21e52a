package config

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Genesis describes assets, balances and pools to create on an empty ledger.
type Genesis struct {
	Assets   []GenesisAsset   `yaml:"assets"`
	Balances []GenesisBalance `yaml:"balances"`
	Pools    []GenesisPool    `yaml:"pools"`
}

// GenesisAsset registers an asset with its mint authority.
type GenesisAsset struct {
	ID            string `yaml:"id"`
	MintAuthority string `yaml:"mint_authority"`
}

// GenesisBalance mints Amount of Asset to Owner.
type GenesisBalance struct {
	Owner  string `yaml:"owner"`
	Asset  string `yaml:"asset"`
	Amount uint64 `yaml:"amount"`
}

// GenesisPool initializes one pool and optionally seeds it with a deposit.
type GenesisPool struct {
	Seed    uint64          `yaml:"seed"`
	AssetX  string          `yaml:"asset_x"`
	AssetY  string          `yaml:"asset_y"`
	FeeBps  uint16          `yaml:"fee_bps"`
	Admin   string          `yaml:"admin"`
	Deposit *GenesisDeposit `yaml:"deposit"`
}

// GenesisDeposit is a deposit made right after pool creation.
type GenesisDeposit struct {
	User   string `yaml:"user"`
	Shares uint64 `yaml:"shares"`
	MaxX   uint64 `yaml:"max_x"`
	MaxY   uint64 `yaml:"max_y"`
}

// LoadGenesis reads and validates a genesis file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var g Genesis
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse genesis: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// Validate checks every address field. Admin may be empty.
func (g *Genesis) Validate() error {
	for i, a := range g.Assets {
		if err := requireAddress(fmt.Sprintf("assets[%d].id", i), a.ID); err != nil {
			return err
		}
		if err := requireAddress(fmt.Sprintf("assets[%d].mint_authority", i), a.MintAuthority); err != nil {
			return err
		}
	}
	for i, b := range g.Balances {
		if err := requireAddress(fmt.Sprintf("balances[%d].owner", i), b.Owner); err != nil {
			return err
		}
		if err := requireAddress(fmt.Sprintf("balances[%d].asset", i), b.Asset); err != nil {
			return err
		}
	}
	for i, p := range g.Pools {
		if err := requireAddress(fmt.Sprintf("pools[%d].asset_x", i), p.AssetX); err != nil {
			return err
		}
		if err := requireAddress(fmt.Sprintf("pools[%d].asset_y", i), p.AssetY); err != nil {
			return err
		}
		if p.Admin != "" {
			if err := requireAddress(fmt.Sprintf("pools[%d].admin", i), p.Admin); err != nil {
				return err
			}
		}
		if p.Deposit != nil {
			if err := requireAddress(fmt.Sprintf("pools[%d].deposit.user", i), p.Deposit.User); err != nil {
				return err
			}
		}
	}
	return nil
}

func requireAddress(field, value string) error {
	if !common.IsHexAddress(value) {
		return fmt.Errorf("%s: invalid address %q", field, value)
	}
	return nil
}
