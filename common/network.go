package common

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
)

// Network binds chain parameters to the mempool indexer serving them.
// Values are resolved once at startup and passed down explicitly.
type Network struct {
	Name       string
	Params     *chaincfg.Params
	MempoolURL string
}

var MainNet = Network{
	Name:       "mainnet",
	Params:     &chaincfg.MainNetParams,
	MempoolURL: "https://mempool.space/api",
}

var TestNet = Network{
	Name:       "testnet",
	Params:     &chaincfg.TestNet3Params,
	MempoolURL: "https://mempool.space/testnet/api",
}

var SigNet = Network{
	Name:       "signet",
	Params:     &chaincfg.SigNetParams,
	MempoolURL: "https://mempool.space/signet/api",
}

var RegTest = Network{
	Name:       "regtest",
	Params:     &chaincfg.RegressionNetParams,
	MempoolURL: "http://localhost:3000/api",
}

func NetworkFromString(net string) (Network, error) {
	switch strings.ToLower(net) {
	case MainNet.Name, "bitcoin":
		return MainNet, nil
	case TestNet.Name, "testnet3":
		return TestNet, nil
	case SigNet.Name:
		return SigNet, nil
	case RegTest.Name:
		return RegTest, nil
	default:
		return Network{}, fmt.Errorf("unknown network %s", net)
	}
}
