package graph

import (
	"fmt"
	"slices"

	"github.com/goccy/go-json"

	"github.com/easydapp/jelly-packages/internal/core/link"
)

// IcWallet names an Internet Computer wallet. On the wire a wallet is an
// object with a single key and empty settings: {"plug":{}}.
type IcWallet string

const (
	IcWalletAny       IcWallet = "any"
	IcWalletII        IcWallet = "ii"
	IcWalletPlug      IcWallet = "plug"
	IcWalletMe        IcWallet = "me"
	IcWalletBitfinity IcWallet = "bitfinity"
	IcWalletNFID      IcWallet = "nfid"
	IcWalletStoic     IcWallet = "stoic"
)

var icWallets = []IcWallet{IcWalletAny, IcWalletII, IcWalletPlug, IcWalletMe, IcWalletBitfinity, IcWalletNFID, IcWalletStoic}

func (w IcWallet) MarshalJSON() ([]byte, error) {
	return marshalWallet(string(w))
}

func (w *IcWallet) UnmarshalJSON(data []byte) error {
	name, err := unmarshalWallet(data)
	if err != nil {
		return err
	}
	if !slices.Contains(icWallets, IcWallet(name)) {
		return fmt.Errorf("unknown ic wallet %q", name)
	}
	*w = IcWallet(name)
	return nil
}

// EvmWallet names an EVM wallet, encoded like IcWallet.
type EvmWallet string

const (
	EvmWalletAny      EvmWallet = "any"
	EvmWalletMetaMask EvmWallet = "metamask"
	EvmWalletRainbow  EvmWallet = "rainbow"
)

var allEvmChains = []link.EvmChain{
	link.EvmEthereum,
	link.EvmEthereumTestSepolia,
	link.EvmBinanceSmartChain,
	link.EvmBinanceSmartChainTest,
	link.EvmHashKey,
	link.EvmHashKeyTest,
	link.EvmPolygon,
	link.EvmPolygonTestAmoy,
}

var evmWalletChains = map[EvmWallet][]link.EvmChain{
	EvmWalletAny:      allEvmChains,
	EvmWalletMetaMask: allEvmChains,
	EvmWalletRainbow:  allEvmChains,
}

// Supports reports whether the wallet can connect to chain.
func (w EvmWallet) Supports(chain link.EvmChain) bool {
	return slices.Contains(evmWalletChains[w], chain)
}

func (w EvmWallet) MarshalJSON() ([]byte, error) {
	return marshalWallet(string(w))
}

func (w *EvmWallet) UnmarshalJSON(data []byte) error {
	name, err := unmarshalWallet(data)
	if err != nil {
		return err
	}
	if _, ok := evmWalletChains[EvmWallet(name)]; !ok {
		return fmt.Errorf("unknown evm wallet %q", name)
	}
	*w = EvmWallet(name)
	return nil
}

func marshalWallet(name string) ([]byte, error) {
	return json.Marshal(map[string]struct{}{name: {}})
}

func unmarshalWallet(data []byte) (string, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return "", err
	}
	if len(m) != 1 {
		return "", fmt.Errorf("wallet must have exactly one key, got %d", len(m))
	}
	for name := range m {
		return name, nil
	}
	return "", nil
}
