// Package ethunit converts between the chain's minimal unit (wei) and the
// decimal display unit (ether).
package ethunit

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// etherDecimals is the 10^18 scale between wei and ether.
const etherDecimals = 18

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(etherDecimals), nil)

// FormatWei renders a wei amount as a decimal ether string. Whole-ether
// values keep a single trailing decimal ("1.0"), fractional values keep
// their significant digits ("0.25"). A nil amount renders as "0.0".
func FormatWei(wei *big.Int) string {
	if wei == nil {
		return "0.0"
	}

	quo, rem := new(big.Int).QuoRem(new(big.Int).Abs(wei), weiPerEther, new(big.Int))

	frac := strings.TrimRight(fmt.Sprintf("%018s", rem.String()), "0")
	if frac == "" {
		frac = "0"
	}

	sign := ""
	if wei.Sign() < 0 {
		sign = "-"
	}
	return sign + quo.String() + "." + frac
}

// ToWei parses a decimal ether string into a wei amount. It rejects
// malformed input and amounts with more than 18 fractional digits, which
// cannot be represented on chain.
func ToWei(ether string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(ether))
	if err != nil {
		return nil, fmt.Errorf("ethunit: parsing %q: %w", ether, err)
	}
	scaled := d.Shift(etherDecimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("ethunit: %q has more than %d decimal places", ether, etherDecimals)
	}
	return scaled.BigInt(), nil
}
