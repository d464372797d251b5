// Package similarity provides the low-level comparison signals used by the
// matching and locating components: perceptual image fingerprints and
// sequence similarity over token lists.
package similarity

import (
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
)

// MaxFingerprintDistance is the largest possible Hamming distance between two
// fingerprints (one bit per hash position).
const MaxFingerprintDistance = 64

// Fingerprint is a fixed-length perceptual code summarizing the visual
// content of a rasterized region. Two fingerprints are comparable only when
// both regions were rasterized at a consistent scale.
type Fingerprint struct {
	hash *goimagehash.ImageHash
}

// ComputeFingerprint builds a 64-bit perceptual hash of the given pixels.
func ComputeFingerprint(img image.Image) (Fingerprint, error) {
	if img == nil {
		return Fingerprint{}, fmt.Errorf("fingerprint: nil image")
	}
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("fingerprint: %w", err)
	}
	return Fingerprint{hash: h}, nil
}

// Distance returns the Hamming distance between two fingerprints in
// [0, MaxFingerprintDistance]; lower means more similar.
func (f Fingerprint) Distance(other Fingerprint) (int, error) {
	if f.hash == nil || other.hash == nil {
		return 0, fmt.Errorf("fingerprint: distance on empty fingerprint")
	}
	d, err := f.hash.Distance(other.hash)
	if err != nil {
		return 0, fmt.Errorf("fingerprint: %w", err)
	}
	return d, nil
}

// Empty reports whether the fingerprint has not been computed.
func (f Fingerprint) Empty() bool { return f.hash == nil }

// String returns the hexadecimal representation of the hash, for reports.
func (f Fingerprint) String() string {
	if f.hash == nil {
		return ""
	}
	return f.hash.ToString()
}
