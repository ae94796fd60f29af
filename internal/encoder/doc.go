// Package encoder packs unit covariate vectors into fixed-width bit vectors so that exact
// agreement on any covariate set reduces to a masked word comparison.
//
// Every covariate j gets bits.Len(max code of j) bits. A unit's codes are laid out back to
// back in a bitset; the mask of a covariate set selects the bit ranges of its members.
// Next to the packed vector the encoder precomputes one xxhash per (unit, covariate) so a
// bucket key for any set is a sum of precomputed values.
//
// Negative codes are missing values. A missing value is never equal to anything, so a
// unit has no key under any set that contains one of its missing covariates.
package encoder
