package shamir

import (
	"crypto/rand"
	"io"

	"ethernity.dev/core/errs"
)

// blockSize is the Shamir evaluation unit: every 16-byte block of a
// padded secret is shared independently.
const blockSize = 16

// splitBlock evaluates a degree-(threshold-1) polynomial with block as
// its constant term at x = 1..shareCount, returning shareCount blocks of
// blockSize bytes each, one per byte position.
func splitBlock(rng io.Reader, block []byte, threshold, shareCount int) ([][]byte, error) {
	shares := make([][]byte, shareCount)
	for i := range shares {
		shares[i] = make([]byte, blockSize)
	}
	coeffs := make([]byte, threshold)
	for pos := 0; pos < blockSize; pos++ {
		coeffs[0] = block[pos]
		if threshold > 1 {
			if _, err := io.ReadFull(rng, coeffs[1:]); err != nil {
				return nil, errs.Newf(errs.InvalidInput, "shamir: rng read: %v", err)
			}
		}
		for i := 0; i < shareCount; i++ {
			x := byte(i + 1)
			y := coeffs[0]
			px := byte(1)
			for k := 1; k < threshold; k++ {
				px = gfMul(px, x)
				y = gfAdd(y, gfMul(coeffs[k], px))
			}
			shares[i][pos] = y
		}
	}
	return shares, nil
}

// combineBlock runs Lagrange interpolation at x=0 for each byte position
// given (index, blockShare) pairs, reconstructing the original block.
func combineBlock(indices []byte, blocks [][]byte) ([]byte, error) {
	t := len(indices)
	out := make([]byte, blockSize)
	for pos := 0; pos < blockSize; pos++ {
		var acc byte
		for i := 0; i < t; i++ {
			xi := indices[i]
			yi := blocks[i][pos]
			num := byte(1)
			den := byte(1)
			for j := 0; j < t; j++ {
				if j == i {
					continue
				}
				xj := indices[j]
				num = gfMul(num, xj)
				den = gfMul(den, gfAdd(xi, xj))
			}
			if den == 0 {
				return nil, errs.New(errs.InvalidInput, "shamir: duplicate share index in combine set")
			}
			term := gfMul(yi, gfDiv(num, den))
			acc = gfAdd(acc, term)
		}
		out[pos] = acc
	}
	return out, nil
}

// splitSecretBlocks right-pads secret to a multiple of blockSize and
// splits each block independently, returning, per share index (1-based),
// the concatenation of that index's block-shares in block order.
func splitSecretBlocks(rng io.Reader, secret []byte, threshold, shareCount int) ([][]byte, error) {
	padded := padTo16(secret)
	numBlocks := len(padded) / blockSize
	perShare := make([][]byte, shareCount)
	for i := range perShare {
		perShare[i] = make([]byte, 0, len(padded))
	}
	for b := 0; b < numBlocks; b++ {
		block := padded[b*blockSize : (b+1)*blockSize]
		shares, err := splitBlock(rng, block, threshold, shareCount)
		if err != nil {
			return nil, err
		}
		for i, s := range shares {
			perShare[i] = append(perShare[i], s...)
		}
	}
	return perShare, nil
}

// combineSecretBlocks is the inverse of splitSecretBlocks: given parallel
// indices and per-share byte strings (each a multiple of blockSize),
// reconstructs the padded secret and truncates it to secretLen.
func combineSecretBlocks(indices []byte, shareBytes [][]byte, secretLen int) ([]byte, error) {
	if len(shareBytes) == 0 {
		return nil, errs.New(errs.ShardInsufficient, "shamir: no shares to combine")
	}
	n := len(shareBytes[0])
	if n%blockSize != 0 {
		return nil, errs.New(errs.InvalidInput, "shamir: share length not a multiple of block size")
	}
	for _, sb := range shareBytes {
		if len(sb) != n {
			return nil, errs.New(errs.InvalidInput, "shamir: share length mismatch among shares")
		}
	}
	numBlocks := n / blockSize
	out := make([]byte, 0, n)
	blocks := make([][]byte, len(shareBytes))
	for b := 0; b < numBlocks; b++ {
		for i, sb := range shareBytes {
			blocks[i] = sb[b*blockSize : (b+1)*blockSize]
		}
		block, err := combineBlock(indices, blocks)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
	}
	if secretLen > len(out) {
		return nil, errs.New(errs.InvalidInput, "shamir: secret_len exceeds reconstructed length")
	}
	return out[:secretLen], nil
}

func padTo16(secret []byte) []byte {
	rem := len(secret) % blockSize
	if rem == 0 {
		return append([]byte{}, secret...)
	}
	out := make([]byte, len(secret)+(blockSize-rem))
	copy(out, secret)
	return out
}

// systemRandReader is the default entropy source for Shard; tests may
// substitute a seeded reader to make fixtures reproducible.
var systemRandReader io.Reader = rand.Reader
