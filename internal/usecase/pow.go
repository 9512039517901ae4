package usecase

import (
	"math"
	"math/big"
)

// The derivation pins its outputs bit-for-bit, and math.Pow carries a
// few-ulp error that flips round() once the key material grows past 2^53.
// powRound computes x**y through 320-bit fixed-point exp/ln instead, so the
// result is the correctly rounded float64 of the true power.
const powPrec = 320

var (
	powScale = new(big.Int).Lsh(big.NewInt(1), powPrec)
	powLn2   = func() *big.Int {
		// ln 2 = 2*atanh(1/3)
		z := new(big.Int).Quo(powScale, big.NewInt(3))
		return new(big.Int).Lsh(atanhFixed(z), 1)
	}()
)

func powRound(x, y float64) float64 {
	if x <= 0 || math.IsInf(x, 0) || math.IsNaN(x) || math.IsNaN(y) || math.IsInf(y, 0) {
		return math.Pow(x, y)
	}
	if x == 1 || y == 0 {
		return 1
	}
	// t = y * ln(x); y has at most 53 mantissa bits so its fixed-point
	// form is exact.
	t := new(big.Int).Mul(ratFixed(new(big.Rat).SetFloat64(y)), lnFixed(x))
	t.Quo(t, powScale)
	sum, exp := expFixed(t)
	return fixedToFloat(sum, exp)
}

// ratPow returns x**n for finite x and n >= 1. The float64 base is an
// exact binary rational, so the integer power is exact and rounds once.
func ratPow(x float64, n int) float64 {
	r := new(big.Rat).SetFloat64(x)
	if r == nil || n < 1 {
		return math.Pow(x, float64(n))
	}
	e := big.NewInt(int64(n))
	num := new(big.Int).Exp(r.Num(), e, nil)
	den := new(big.Int).Exp(r.Denom(), e, nil)
	f, _ := new(big.Rat).SetFrac(num, den).Float64()
	return f
}

// lnFixed returns ln(x) * 2^powPrec for x > 0.
func lnFixed(x float64) *big.Int {
	m, k := math.Frexp(x) // x = m * 2^k, m in [0.5, 1)
	one := new(big.Rat).SetInt64(1)
	mr := new(big.Rat).SetFloat64(m)
	z := new(big.Rat).Sub(mr, one)
	z.Quo(z, new(big.Rat).Add(mr, one)) // (m-1)/(m+1) in (-1/3, 0]
	result := new(big.Int).Mul(big.NewInt(int64(k)), powLn2)
	return result.Add(result, new(big.Int).Lsh(atanhFixed(ratFixed(z)), 1))
}

// atanhFixed sums z + z^3/3 + z^5/5 + ... in fixed point for |z| <= 1/3.
func atanhFixed(z *big.Int) *big.Int {
	z2 := new(big.Int).Mul(z, z)
	z2.Quo(z2, powScale)
	term := new(big.Int).Set(z)
	total := new(big.Int).Set(z)
	step := new(big.Int)
	for n := int64(3); ; n += 2 {
		term.Mul(term, z2)
		term.Quo(term, powScale)
		step.Quo(term, big.NewInt(n))
		if step.Sign() == 0 {
			return total
		}
		total.Add(total, step)
	}
}

// expFixed returns (sum, n) with exp(t/2^powPrec) = sum/2^powPrec * 2^n.
func expFixed(t *big.Int) (*big.Int, int) {
	// t = n*ln2 + r with |r| <= ln2/2, then exp(r) by Taylor series
	n := nearestQuo(t, powLn2)
	r := new(big.Int).Mul(big.NewInt(n), powLn2)
	r.Sub(t, r)
	total := new(big.Int).Set(powScale)
	term := new(big.Int).Set(powScale)
	for k := int64(1); ; k++ {
		term.Mul(term, r)
		term.Quo(term, powScale)
		term.Quo(term, big.NewInt(k))
		if term.Sign() == 0 {
			return total, int(n)
		}
		total.Add(total, term)
	}
}

// ratFixed truncates z * 2^powPrec to an integer.
func ratFixed(z *big.Rat) *big.Int {
	v := new(big.Int).Mul(z.Num(), powScale)
	return v.Quo(v, z.Denom())
}

// nearestQuo rounds a/b to the nearest integer for b > 0.
func nearestQuo(a, b *big.Int) int64 {
	num := new(big.Int).Lsh(a, 1)
	num.Add(num, b)
	den := new(big.Int).Lsh(b, 1)
	return new(big.Int).Div(num, den).Int64()
}

func fixedToFloat(sum *big.Int, exp int) float64 {
	num := new(big.Int).Set(sum)
	den := new(big.Int).Set(powScale)
	if exp >= 0 {
		num.Lsh(num, uint(exp))
	} else {
		den.Lsh(den, uint(-exp))
	}
	f, _ := new(big.Rat).SetFrac(num, den).Float64()
	return f
}
