package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"github.com/Aidin1998/pincex_matching/internal/batch"
	"github.com/Aidin1998/pincex_matching/internal/exchange"
	"github.com/Aidin1998/pincex_matching/internal/order"
)

// orderFile is an order as written in a batch file. Amounts are decimal
// strings, asset data and signatures 0x-prefixed hex.
type orderFile struct {
	Maker             string `yaml:"maker"`
	Taker             string `yaml:"taker"`
	FeeRecipient      string `yaml:"fee_recipient"`
	Sender            string `yaml:"sender"`
	MakerAssetAmount  string `yaml:"maker_asset_amount"`
	TakerAssetAmount  string `yaml:"taker_asset_amount"`
	MakerFee          string `yaml:"maker_fee"`
	TakerFee          string `yaml:"taker_fee"`
	Expiration        uint64 `yaml:"expiration"`
	Salt              string `yaml:"salt"`
	MakerAssetData    string `yaml:"maker_asset_data"`
	TakerAssetData    string `yaml:"taker_asset_data"`
	MakerFeeAssetData string `yaml:"maker_fee_asset_data"`
	TakerFeeAssetData string `yaml:"taker_fee_asset_data"`
	Signature         string `yaml:"signature"`
}

// batchFile is the document read by the CLI.
type batchFile struct {
	Taker string       `yaml:"taker"`
	Left  []orderFile  `yaml:"left"`
	Right []orderFile  `yaml:"right"`
	Pairs []batch.Pair `yaml:"pairs"`
}

func readBatchFile(path string) (exchange.BatchRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return exchange.BatchRequest{}, fmt.Errorf("failed to read batch file: %w", err)
	}
	var f batchFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return exchange.BatchRequest{}, fmt.Errorf("failed to parse batch file: %w", err)
	}
	return f.request()
}

func (f batchFile) request() (exchange.BatchRequest, error) {
	req := exchange.BatchRequest{Pairs: f.Pairs}
	var err error
	if req.Taker, err = address(f.Taker); err != nil {
		return exchange.BatchRequest{}, fmt.Errorf("taker: %w", err)
	}
	if req.LeftOrders, req.LeftSignatures, err = decodeOrders(f.Left); err != nil {
		return exchange.BatchRequest{}, fmt.Errorf("left: %w", err)
	}
	if req.RightOrders, req.RightSignatures, err = decodeOrders(f.Right); err != nil {
		return exchange.BatchRequest{}, fmt.Errorf("right: %w", err)
	}
	return req, nil
}

func decodeOrders(in []orderFile) ([]*order.Order, []hexutil.Bytes, error) {
	orders := make([]*order.Order, len(in))
	sigs := make([]hexutil.Bytes, len(in))
	for i, of := range in {
		o, sig, err := of.decode()
		if err != nil {
			return nil, nil, fmt.Errorf("order %d: %w", i, err)
		}
		orders[i], sigs[i] = o, sig
	}
	return orders, sigs, nil
}

func (of orderFile) decode() (*order.Order, hexutil.Bytes, error) {
	o := &order.Order{ExpirationTimeSeconds: of.Expiration}

	addrs := []struct {
		dst *common.Address
		src string
	}{
		{&o.MakerAddress, of.Maker},
		{&o.TakerAddress, of.Taker},
		{&o.FeeRecipientAddress, of.FeeRecipient},
		{&o.SenderAddress, of.Sender},
	}
	for _, a := range addrs {
		v, err := address(a.src)
		if err != nil {
			return nil, nil, err
		}
		*a.dst = v
	}

	amounts := []struct {
		dst  **uint256.Int
		src  string
		name string
	}{
		{&o.MakerAssetAmount, of.MakerAssetAmount, "maker_asset_amount"},
		{&o.TakerAssetAmount, of.TakerAssetAmount, "taker_asset_amount"},
		{&o.MakerFee, of.MakerFee, "maker_fee"},
		{&o.TakerFee, of.TakerFee, "taker_fee"},
		{&o.Salt, of.Salt, "salt"},
	}
	for _, a := range amounts {
		v, err := amount(a.src)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", a.name, err)
		}
		*a.dst = v
	}

	data := []struct {
		dst  *hexutil.Bytes
		src  string
		name string
	}{
		{&o.MakerAssetData, of.MakerAssetData, "maker_asset_data"},
		{&o.TakerAssetData, of.TakerAssetData, "taker_asset_data"},
		{&o.MakerFeeAssetData, of.MakerFeeAssetData, "maker_fee_asset_data"},
		{&o.TakerFeeAssetData, of.TakerFeeAssetData, "taker_fee_asset_data"},
	}
	for _, d := range data {
		v, err := hexBytes(d.src)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}

	sig, err := hexBytes(of.Signature)
	if err != nil {
		return nil, nil, fmt.Errorf("signature: %w", err)
	}
	return o, sig, nil
}

func address(s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func amount(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	return uint256.FromDecimal(s)
}

func hexBytes(s string) (hexutil.Bytes, error) {
	if s == "" || s == "0x" {
		return hexutil.Bytes{}, nil
	}
	return hexutil.Decode(s)
}
