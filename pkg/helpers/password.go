package helpers

import (
	"context"
	"encoding/base64"
	"errors"
	"runtime"
	"strconv"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultBcryptCost matches the cost used for the existing account base.
const DefaultBcryptCost = 10

// bcryptMaxInput is the most bcrypt reads from a password. Longer input is
// truncated, which keeps hashes compatible with the existing account base.
const bcryptMaxInput = 72

// CredentialVault hashes and verifies passwords with bcrypt.
// Hashing is CPU bound, so a weighted semaphore caps how many run at once.
// The vault holds no per-call state and is safe for concurrent use.
type CredentialVault struct {
	cost int
	sem  *semaphore.Weighted
}

// NewCredentialVault builds a vault. Out of range costs fall back to
// DefaultBcryptCost and a non-positive concurrency means one slot per CPU.
func NewCredentialVault(cost, concurrency int) *CredentialVault {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	return &CredentialVault{cost: cost, sem: semaphore.NewWeighted(int64(concurrency))}
}

// Hash returns a salted bcrypt hash of plain. Two calls with the same input
// return different hashes that both verify. Only the first 72 bytes of plain
// take part in the hash.
func (v *CredentialVault) Hash(ctx context.Context, plain string) (string, error) {
	if err := v.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer v.sem.Release(1)

	b, err := bcrypt.GenerateFromPassword(bcryptInput(plain), v.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compares plain against hash in constant time. A mismatch or a
// malformed hash yields false with a nil error; only failures that are not about
// the input itself are returned as errors.
func (v *CredentialVault) Verify(ctx context.Context, plain, hash string) (bool, error) {
	if err := v.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer v.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(plain))
	switch {
	case err == nil:
		return true, nil
	case isMalformedHash(err):
		return false, nil
	default:
		return false, err
	}
}

func bcryptInput(plain string) []byte {
	b := []byte(plain)
	if len(b) > bcryptMaxInput {
		b = b[:bcryptMaxInput]
	}
	return b
}

func isMalformedHash(err error) bool {
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) || errors.Is(err, bcrypt.ErrHashTooShort) {
		return true
	}
	var (
		prefixErr  bcrypt.InvalidHashPrefixError
		versionErr bcrypt.HashVersionTooNewError
		costErr    bcrypt.InvalidCostError
		numErr     *strconv.NumError
		b64Err     base64.CorruptInputError
	)
	return errors.As(err, &prefixErr) || errors.As(err, &versionErr) || errors.As(err, &costErr) ||
		errors.As(err, &numErr) || errors.As(err, &b64Err)
}
