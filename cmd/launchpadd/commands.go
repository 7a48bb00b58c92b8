package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"syscall"
	"time"

	"github.com/ordlaunch/launchpad/common"
	"github.com/ordlaunch/launchpad/common/keychain"
	"github.com/ordlaunch/launchpad/internal/infrastructure/explorer/mempool"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

var (
	networkFlag = cli.StringFlag{
		Name:  "network",
		Usage: "mainnet | testnet | signet | regtest",
		Value: common.MainNet.Name,
	}
	mnemonicFlag = cli.StringFlag{
		Name:  "mnemonic",
		Usage: "optional, BIP39 mnemonic, prompted if omitted",
	}
	passphraseFlag = cli.StringFlag{
		Name:  "passphrase",
		Usage: "optional, BIP39 passphrase",
	}
	explorerFlag = cli.StringFlag{
		Name:  "explorer",
		Usage: "optional, mempool.space api url, defaults to the network one",
	}
)

var (
	keysCommand = cli.Command{
		Name:  "keys",
		Usage: "Manage BIP39 wallets",
		Subcommands: []*cli.Command{
			{
				Name:   "new",
				Usage:  "Generate a 24 word mnemonic",
				Action: newMnemonicAction,
			},
			{
				Name:   "derive",
				Usage:  "Show the addresses derived from a mnemonic",
				Action: deriveAction,
				Flags:  []cli.Flag{&networkFlag, &mnemonicFlag, &passphraseFlag},
			},
		},
	}

	feesCommand = cli.Command{
		Name:   "fees",
		Usage:  "Show the recommended fee rates in sat/vB",
		Action: feesAction,
		Flags:  []cli.Flag{&networkFlag, &explorerFlag},
	}
)

func newMnemonicAction(_ *cli.Context) error {
	mnemonic, err := keychain.GenerateMnemonic()
	if err != nil {
		return err
	}
	fmt.Println(mnemonic)
	return nil
}

func deriveAction(ctx *cli.Context) error {
	net, err := common.NetworkFromString(ctx.String(networkFlag.Name))
	if err != nil {
		return err
	}

	mnemonic := ctx.String(mnemonicFlag.Name)
	if len(mnemonic) <= 0 {
		if mnemonic, err = readMnemonic(); err != nil {
			return err
		}
	}

	wallet, err := keychain.Derive(mnemonic, ctx.String(passphraseFlag.Name), net.Params)
	if err != nil {
		return err
	}

	type key struct {
		Type    string `json:"type"`
		Path    string `json:"path"`
		Address string `json:"address"`
		PubKey  string `json:"pubkey"`
	}
	keys := make([]key, 0, len(keychain.AllAddressTypes))
	for _, k := range wallet.Keys() {
		keys = append(keys, key{
			Type:    k.Type.String(),
			Path:    k.Path,
			Address: k.EncodeAddress(),
			PubKey:  k.PubKeyHex(),
		})
	}
	return printJSON(keys)
}

func feesAction(ctx *cli.Context) error {
	net, err := common.NetworkFromString(ctx.String(networkFlag.Name))
	if err != nil {
		return err
	}
	url := ctx.String(explorerFlag.Name)
	if len(url) <= 0 {
		url = net.MempoolURL
	}

	explorer, err := mempool.NewExplorer(url, 15*time.Second)
	if err != nil {
		return err
	}
	rates, err := explorer.GetFeeRates(ctx.Context)
	if err != nil {
		return err
	}

	return printJSON(map[string]float64{
		"fastest":  rates.Fastest,
		"halfhour": rates.HalfHour,
		"hour":     rates.Hour,
		"economy":  rates.Economy,
		"minimum":  rates.Minimum,
	})
}

func readMnemonic() (string, error) {
	fmt.Print("mnemonic: ")
	buf, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(string(buf)), " "), nil
}

func printJSON(resp interface{}) error {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		return err
	}

	fmt.Println(string(jsonBytes))
	return nil
}
