package link

// CallChain is a network a call component talks to.
type CallChain string

const (
	ChainHTTP                  CallChain = "http"
	ChainInternetComputer      CallChain = "ic"
	ChainEthereum              CallChain = "ethereum"
	ChainEthereumTestSepolia   CallChain = "ethereum-test-sepolia"
	ChainBinanceSmartChain     CallChain = "bsc"
	ChainBinanceSmartChainTest CallChain = "bsc-test"
	ChainHashKey               CallChain = "hsk"
	ChainHashKeyTest           CallChain = "hsk-test"
	ChainPolygon               CallChain = "polygon"
	ChainPolygonTestAmoy       CallChain = "polygon-test-amoy"
)

// EvmChain is the subset of chains reachable through an EVM wallet.
type EvmChain string

const (
	EvmEthereum              EvmChain = "ethereum"
	EvmEthereumTestSepolia   EvmChain = "ethereum-test-sepolia"
	EvmBinanceSmartChain     EvmChain = "bsc"
	EvmBinanceSmartChainTest EvmChain = "bsc-test"
	EvmHashKey               EvmChain = "hsk"
	EvmHashKeyTest           EvmChain = "hsk-test"
	EvmPolygon               EvmChain = "polygon"
	EvmPolygonTestAmoy       EvmChain = "polygon-test-amoy"
)

var evmChainIDs = map[EvmChain]uint64{
	EvmEthereum:              1,
	EvmEthereumTestSepolia:   11155111,
	EvmBinanceSmartChain:     56,
	EvmBinanceSmartChainTest: 97,
	EvmHashKey:               177,
	EvmHashKeyTest:           133,
	EvmPolygon:               137,
	EvmPolygonTestAmoy:       80002,
}

// IsValid reports a known chain.
func (c EvmChain) IsValid() bool {
	_, ok := evmChainIDs[c]
	return ok
}

// ChainID returns the EIP-155 chain id, or 0 for an unknown chain.
func (c EvmChain) ChainID() uint64 {
	return evmChainIDs[c]
}

// CallChain maps the wallet chain onto the call chain with the same name.
func (c EvmChain) CallChain() CallChain {
	return CallChain(c)
}
