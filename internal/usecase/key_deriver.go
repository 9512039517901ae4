package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"

	"github.com/IA683/AstraGPT/internal/domain"
)

// KeyDeriver computes the daily access digests from a calendar date.
// Clients derive the same digests independently, so the arithmetic is
// pinned exactly: integer power terms are carried in math/big so year^day
// never overflows, every real-valued power is correctly rounded (powRound,
// ratPow), int-to-float conversions and int/int true division are
// correctly rounded, and every round() is round-half-to-even.
type KeyDeriver struct{}

func (KeyDeriver) Derive(date domain.CalendarDate, mode domain.KeyMode) (domain.DigestSet, error) {
	switch mode {
	case domain.KeyModeNormal, domain.KeyModeShared:
	default:
		return domain.DigestSet{}, fmt.Errorf("%w: %q", domain.ErrInvalidMode, mode)
	}

	material := deriveKeyMaterial(date)
	digests := make([]string, 0, len(material.keys))
	for _, raw := range material.keys {
		digests = append(digests, sha256Hex(raw.String()))
	}

	if mode == domain.KeyModeShared {
		// Digest of digests: the concatenated hex strings of key0 and key1,
		// not their raw numeric sources.
		shared := sha256Hex(digests[0] + digests[1])
		return domain.DigestSet{Date: date, Mode: mode, Digests: []string{shared}}, nil
	}
	return domain.DigestSet{Date: date, Mode: mode, Digests: digests}, nil
}

type keyMaterial struct {
	seed     *big.Int
	seedHash string
	keys     [4]*big.Int
}

func deriveKeyMaterial(date domain.CalendarDate) keyMaterial {
	year, month, day := date.Year, date.Month, date.Day

	// seed = month^2 * year^day * 2^day. Its hash is never consulted by
	// validation but stays part of the pipeline; dropping it would be an
	// observable behavior change for anything keyed to derivation order.
	seed := new(big.Int).Mul(intPow(month, 2), intPow(year, day))
	seed.Mul(seed, intPow(2, day))
	seedHash := sha256Hex(seed.String())

	e0 := roundEvenInt(float64(day) / 2.5)
	e1 := roundEvenInt(float64(day) / 2)
	e2 := roundEvenInt(float64(day%3) + powRound(0.5, powRound(float64(day), 0.6)))

	// key0 = 2*year + 7*month^e0 + day^(e1+e2)
	key0 := big.NewInt(int64(2 * year))
	key0.Add(key0, new(big.Int).Mul(big.NewInt(7), intPow(month, e0)))
	key0.Add(key0, intPow(day, e1+e2))

	// key1 = round((key0 + 1 - month)^0.8)
	key1Base := new(big.Int).Add(key0, big.NewInt(int64(1-month)))
	key1 := roundEvenBig(powRound(bigToFloat(key1Base), 0.8))

	// key2 = round(key0*(month + year - 2*day) + key1^0.5 - 2^month).
	// The product is exact; adding the float square root collapses the
	// whole sum to float64 before rounding.
	product := new(big.Int).Mul(key0, big.NewInt(int64(month+year-2*day)))
	f := bigToFloat(product)
	f += math.Sqrt(bigToFloat(key1))
	f -= math.Ldexp(1, month)
	key2 := roundEvenBig(f)

	// key3 = round(((key1+key2)/2 + (key1/key0)^(day + (month%3)%2)) * month^3.14)
	half := ratToFloat(new(big.Int).Add(key1, key2), big.NewInt(2))
	ratio := ratToFloat(key1, key0)
	exp := day + (month%3)%2
	inner := half + ratPow(ratio, exp)
	key3 := roundEvenBig(inner * powRound(float64(month), 3.14))

	return keyMaterial{
		seed:     seed,
		seedHash: seedHash,
		keys:     [4]*big.Int{key0, key1, key2, key3},
	}
}

func intPow(base, exp int) *big.Int {
	return new(big.Int).Exp(big.NewInt(int64(base)), big.NewInt(int64(exp)), nil)
}

func bigToFloat(x *big.Int) float64 {
	f, _ := new(big.Float).SetInt(x).Float64()
	return f
}

func ratToFloat(num, den *big.Int) float64 {
	f, _ := new(big.Rat).SetFrac(num, den).Float64()
	return f
}

func roundEvenInt(v float64) int {
	return int(math.RoundToEven(v))
}

// roundEvenBig rounds half-to-even and returns the exact integer value of
// the result, which may exceed the int64 range.
func roundEvenBig(v float64) *big.Int {
	i, _ := new(big.Float).SetFloat64(math.RoundToEven(v)).Int(nil)
	return i
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
