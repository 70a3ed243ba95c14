package pricing

import "github.com/shopspring/decimal"

// allocateWallet decides how many wallet points to apply against the
// payable amount (subtotal minus coupon discount). An explicit request
// must fit both the balance and the payable amount; auto-apply takes the
// maximum useful amount.
func allocateWallet(balance, payable decimal.Decimal, useWallet bool, requested *decimal.Decimal) (decimal.Decimal, error) {
	if !useWallet {
		return decimal.Zero, nil
	}
	if requested != nil {
		if requested.Sign() <= 0 {
			return decimal.Zero, nil
		}
		if requested.GreaterThan(balance) {
			return decimal.Zero, ErrInsufficientWalletBalance
		}
		if requested.GreaterThan(payable) {
			return decimal.Zero, ErrWalletExceedsPayable
		}
		return *requested, nil
	}
	if balance.LessThan(payable) {
		return balance, nil
	}
	return payable, nil
}
