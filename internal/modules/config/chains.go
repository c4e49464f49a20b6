package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// ChainConfig — one watched deposit chain. Deposit address and API key are
// always taken from ENV (they are per-deployment secrets); the rest describes
// the explorer and token and normally comes from chains.yaml or the built-in
// USDT defaults.
type ChainConfig struct {
	Name       string `yaml:"name"` // TRC20 | BEP20
	Explorer   string `yaml:"explorer"`
	Contract   string `yaml:"contract"`
	Token      string `yaml:"token"`
	Decimals   int    `yaml:"decimals"`
	PageLimit  int    `yaml:"page_limit"`
	DepositEnv string `yaml:"deposit_env"`
	APIKeyEnv  string `yaml:"api_key_env"`

	// resolved from ENV at load time
	Deposit string `yaml:"-"`
	APIKey  string `yaml:"-"`
}

func defaultChains() []ChainConfig {
	return []ChainConfig{
		{
			Name:       "TRC20",
			Explorer:   "https://api.trongrid.io",
			Contract:   "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
			Token:      "USDT",
			Decimals:   6,
			PageLimit:  50,
			DepositEnv: "TRC20_ADDRESS",
			APIKeyEnv:  "TRON_API_KEY",
		},
		{
			Name:       "BEP20",
			Explorer:   "https://api.bscscan.com",
			Contract:   "0x55d398326f99059fF775485246999027B3197955",
			Token:      "USDT",
			Decimals:   18,
			PageLimit:  50,
			DepositEnv: "BEP20_ADDRESS",
			APIKeyEnv:  "BSCSCAN_API_KEY",
		},
	}
}

// LoadChains reads chain definitions from the YAML file if present, otherwise
// falls back to the built-in USDT pair. Secrets are resolved from ENV either
// way; a chain left without a deposit address or API key simply stays
// disabled, it never fails the boot.
func LoadChains(path string) ([]ChainConfig, error) {
	chains := defaultChains()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			var file struct {
				Chains []ChainConfig `yaml:"chains"`
			}
			if err := yaml.Unmarshal(data, &file); err != nil {
				return nil, errors.Wrap(err, "parse chains file")
			}
			if len(file.Chains) > 0 {
				chains = file.Chains
			}
		case os.IsNotExist(err):
			// defaults
		default:
			return nil, errors.Wrap(err, "read chains file")
		}
	}

	for i := range chains {
		if chains[i].PageLimit <= 0 {
			chains[i].PageLimit = 50
		}
		if chains[i].DepositEnv != "" {
			chains[i].Deposit = os.Getenv(chains[i].DepositEnv)
		}
		if chains[i].APIKeyEnv != "" {
			chains[i].APIKey = os.Getenv(chains[i].APIKeyEnv)
		}
	}
	return chains, nil
}
