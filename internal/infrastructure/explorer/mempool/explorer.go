package mempool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ordlaunch/launchpad/common"
	"github.com/ordlaunch/launchpad/internal/core/domain"
	"github.com/ordlaunch/launchpad/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

const defaultTimeout = 30 * time.Second

type explorer struct {
	baseURL string
	client  *http.Client
}

type utxoStatus struct {
	Confirmed   bool  `json:"confirmed"`
	BlockHeight int64 `json:"block_height"`
	BlockTime   int64 `json:"block_time"`
}

type utxo struct {
	Txid   string     `json:"txid"`
	Vout   uint32     `json:"vout"`
	Value  int64      `json:"value"`
	Status utxoStatus `json:"status"`
}

type recommendedFees struct {
	FastestFee  float64 `json:"fastestFee"`
	HalfHourFee float64 `json:"halfHourFee"`
	HourFee     float64 `json:"hourFee"`
	EconomyFee  float64 `json:"economyFee"`
	MinimumFee  float64 `json:"minimumFee"`
}

// NewExplorer returns a client of the mempool.space REST api rooted at
// baseURL, for example https://mempool.space/api or its testnet variant.
func NewExplorer(baseURL string, timeout time.Duration) (ports.Explorer, error) {
	if len(baseURL) <= 0 {
		return nil, fmt.Errorf("missing explorer url")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid explorer url: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &explorer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (e *explorer) GetUtxos(ctx context.Context, address string) ([]domain.Utxo, error) {
	body, err := e.get(ctx, "address", address, "utxo")
	if err != nil {
		return nil, err
	}

	var payload []utxo
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse utxos of %s: %w", address, err)
	}

	utxos := make([]domain.Utxo, 0, len(payload))
	for _, u := range payload {
		utxos = append(utxos, domain.Utxo{
			Outpoint:    domain.Outpoint{Txid: u.Txid, VOut: u.Vout},
			Value:       u.Value,
			Confirmed:   u.Status.Confirmed,
			BlockHeight: u.Status.BlockHeight,
		})
	}
	return utxos, nil
}

func (e *explorer) GetTxHex(ctx context.Context, txid string) (string, error) {
	body, err := e.get(ctx, "tx", txid, "hex")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

func (e *explorer) Broadcast(ctx context.Context, txHex string) (string, error) {
	endpoint, err := url.JoinPath(e.baseURL, "tx")
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(txHex))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to broadcast transaction: %w", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		reason := strings.TrimSpace(string(content))
		if isAlreadyKnown(reason) {
			tx, err := common.DecodeTx(txHex)
			if err != nil {
				return "", err
			}
			txid := tx.TxHash().String()
			log.WithField("txid", txid).Debug("transaction already known to the network")
			return txid, nil
		}
		// only a 400 carries a node verdict on the transaction itself
		if resp.StatusCode != http.StatusBadRequest {
			return "", fmt.Errorf("failed to broadcast transaction: %s: %s", resp.Status, reason)
		}
		log.WithField("status", resp.Status).Debugf("broadcast rejected: %s", reason)
		return "", fmt.Errorf("%w: %s", ports.ErrTxRejected, reason)
	}

	return strings.TrimSpace(string(content)), nil
}

func isAlreadyKnown(reason string) bool {
	reason = strings.ToLower(reason)
	return strings.Contains(reason, "already in block chain") ||
		strings.Contains(reason, "txn-already-known") ||
		strings.Contains(reason, "txn-already-in-mempool")
}

func (e *explorer) GetFeeRates(ctx context.Context) (*domain.FeeRates, error) {
	body, err := e.get(ctx, "v1", "fees", "recommended")
	if err != nil {
		return nil, err
	}

	var fees recommendedFees
	if err := json.Unmarshal(body, &fees); err != nil {
		return nil, fmt.Errorf("failed to parse fee rates: %w", err)
	}
	if fees.MinimumFee <= 0 {
		fees.MinimumFee = 1
	}

	return &domain.FeeRates{
		Fastest:  fees.FastestFee,
		HalfHour: fees.HalfHourFee,
		Hour:     fees.HourFee,
		Economy:  fees.EconomyFee,
		Minimum:  fees.MinimumFee,
	}, nil
}

func (e *explorer) GetTipHeight(ctx context.Context) (int64, error) {
	body, err := e.get(ctx, "blocks", "tip", "height")
	if err != nil {
		return 0, err
	}
	height, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse tip height: %w", err)
	}
	return height, nil
}

func (e *explorer) get(ctx context.Context, elem ...string) ([]byte, error) {
	endpoint, err := url.JoinPath(e.baseURL, elem...)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return content, nil
	case http.StatusNotFound:
		if len(elem) > 0 && elem[0] == "tx" {
			return nil, fmt.Errorf("%w: %s", ports.ErrTxNotFound, elem[1])
		}
		fallthrough
	default:
		return nil, errors.New(
			"explorer " + endpoint + " HTTP error: " + resp.Status + " " + strings.TrimSpace(string(content)),
		)
	}
}
