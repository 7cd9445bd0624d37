package eth

import (
	"errors"
	"math/big"
)

var errInvalidFeeArgs = errors.New("eth: invalid fee args")

// calc1559Fees prices a transaction off the latest block:
// tipCap = max(suggestedTipCap, minTipCap), feeCap = 2*baseFee + tipCap. The
// doubled base fee absorbs base-fee growth while the transaction waits.
func calc1559Fees(baseFee, suggestedTipCap, minTipCap *big.Int) (tipCap, feeCap *big.Int, err error) {
	if baseFee == nil || suggestedTipCap == nil || minTipCap == nil {
		return nil, nil, errInvalidFeeArgs
	}
	if baseFee.Sign() < 0 || suggestedTipCap.Sign() < 0 || minTipCap.Sign() < 0 {
		return nil, nil, errInvalidFeeArgs
	}

	tip := new(big.Int).Set(suggestedTipCap)
	if tip.Cmp(minTipCap) < 0 {
		tip.Set(minTipCap)
	}

	fee := new(big.Int).Mul(baseFee, big.NewInt(2))
	fee.Add(fee, tip)

	return tip, fee, nil
}

// bump1559Fees raises both caps by bumpPercent for a replacement transaction,
// and by at least one wei: the txpool requires replacements to be
// higher-priced, and a percentage of a small cap can round away to nothing.
// feeCap never drops below tipCap.
func bump1559Fees(tipCap, feeCap *big.Int, bumpPercent int) (newTipCap, newFeeCap *big.Int, err error) {
	if tipCap == nil || feeCap == nil || tipCap.Sign() < 0 || feeCap.Sign() < 0 {
		return nil, nil, errInvalidFeeArgs
	}
	if bumpPercent <= 0 {
		return nil, nil, errInvalidFeeArgs
	}

	pct := big.NewInt(int64(100 + bumpPercent))
	hundred := big.NewInt(100)
	one := big.NewInt(1)

	newTip := new(big.Int).Mul(tipCap, pct)
	newTip.Div(newTip, hundred)
	if floor := new(big.Int).Add(tipCap, one); newTip.Cmp(floor) < 0 {
		newTip = floor
	}

	newFee := new(big.Int).Mul(feeCap, pct)
	newFee.Div(newFee, hundred)
	if floor := new(big.Int).Add(feeCap, one); newFee.Cmp(floor) < 0 {
		newFee = floor
	}

	if newFee.Cmp(newTip) < 0 {
		newFee = new(big.Int).Set(newTip)
	}
	return newTip, newFee, nil
}
