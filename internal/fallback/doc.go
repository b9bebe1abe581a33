// Package fallback pulls the tower file from the durable store when the
// push path cannot deliver it.
//
// Acquisition reads the freshness metadata before the blob. Data older
// than the staleness bound is refused with domain.ErrStaleData, which is
// an expected outcome rather than a fault. Missing metadata means the
// store was never primed with it; the blob is then taken best-effort.
package fallback
