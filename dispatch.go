package mscompress

import (
	"github.com/chrisagrams/mscompress/internal/transform"
)

// TransformPair is the concrete (encode, decode) function pair the
// Dispatcher resolves a (Algorithm, Precision) configuration down to. It
// is a pure, already-validated value: once built, applying it can never
// fail due to configuration.
type TransformPair struct {
	Algorithm transform.Algorithm
	Precision transform.Precision
	Encode    transform.EncodeFunc
	Decode    transform.DecodeFunc
}

// dispatch implements the Dispatcher of §4.6: a pure mapping from
// (algorithm, source precision) onto the concrete transform pair, written
// as a switch rather than a lookup table. Unknown algorithms or
// unsupported (algorithm, precision) pairs are rejected with ConfigError
// before any work starts.
func dispatch(algo transform.Algorithm, prec transform.Precision) (TransformPair, error) {
	switch algo {
	case transform.Lossless:
		return TransformPair{algo, prec, transform.LosslessEncode, transform.LosslessDecode}, nil

	case transform.Cast64To32:
		if prec == transform.F32 {
			// (cast_64_to_32, f32) collapses to lossless: there is
			// nothing to cast down from.
			return TransformPair{algo, prec, transform.LosslessEncode, transform.LosslessDecode}, nil
		}
		return TransformPair{algo, prec, transform.Cast64To32Encode, transform.Cast64To32Decode}, nil

	case transform.Log2:
		return TransformPair{algo, prec, transform.Log2Encode(prec), transform.Log2Decode(prec)}, nil

	case transform.Delta16:
		return TransformPair{algo, prec, transform.Delta16Encode(prec), transform.Delta16Decode(prec)}, nil

	case transform.Delta32:
		if prec == transform.F64 {
			return TransformPair{}, &ConfigError{Reason: "unsupported pair (delta32, f64)"}
		}
		return TransformPair{algo, prec, transform.Delta32Encode(prec), transform.Delta32Decode(prec)}, nil

	default:
		return TransformPair{}, &ConfigError{Reason: "unknown algorithm"}
	}
}

// resolveAlgorithm parses a configuration algorithm name and resolves it
// to a concrete TransformPair for the given source precision, rejecting
// unknown names and unsupported pairs with ConfigError (§4.6).
func resolveAlgorithm(name string, prec transform.Precision) (TransformPair, error) {
	algo, err := transform.ParseAlgorithm(name)
	if err != nil {
		return TransformPair{}, &ConfigError{Reason: "unknown algorithm name", Err: err}
	}
	return dispatch(algo, prec)
}
