package mscompress

import (
	"runtime"

	"github.com/chrisagrams/mscompress/internal/transform"
)

// Config holds the user-supplied configuration described in §6. It is the
// Go analogue of the flags an external CLI collaborator would parse.
type Config struct {
	// Algorithm is the default transform tag applied to both arrays.
	Algorithm string
	// MzAlgorithm and IntenAlgorithm, if non-empty, override Algorithm for
	// their respective array role.
	MzAlgorithm     string
	IntenAlgorithm  string
	Threads         int
	Blocksize       int64
	Divisions       int
	CompressionLevel int
}

// DefaultConfig returns a Config with the defaults documented in §6:
// lossless transforms, one worker per detected CPU, and zero divisions
// (derive the division count from Blocksize).
func DefaultConfig() Config {
	return Config{
		Algorithm:        "lossless",
		Threads:          runtime.GOMAXPROCS(-1),
		Blocksize:        1 << 20,
		Divisions:        0,
		CompressionLevel: 3,
	}
}

// mzAlgo and intenAlgo resolve the per-role algorithm name, applying the
// override-over-default rule of §6.
func (c Config) mzAlgo() string {
	if c.MzAlgorithm != "" {
		return c.MzAlgorithm
	}
	return c.Algorithm
}

func (c Config) intenAlgo() string {
	if c.IntenAlgorithm != "" {
		return c.IntenAlgorithm
	}
	return c.Algorithm
}

// Validate checks the configuration in isolation, independent of any
// input file: algorithm names are well formed and thread/blocksize values
// are sane. Resolving whether an (algorithm, precision) pair is supported
// additionally requires the input's DataFormat and happens in
// resolveAlgorithm, once the source precisions are known (§4.6 requires
// configuration to be validated "before any work starts", which for the
// precision-dependent half of validation means as soon as the format is
// discovered by the scanner, and before the block pipeline is started).
func (c Config) Validate() error {
	if _, err := transform.ParseAlgorithm(c.Algorithm); err != nil {
		return &ConfigError{Reason: "algorithm", Err: err}
	}
	if c.MzAlgorithm != "" {
		if _, err := transform.ParseAlgorithm(c.MzAlgorithm); err != nil {
			return &ConfigError{Reason: "mz_algorithm", Err: err}
		}
	}
	if c.IntenAlgorithm != "" {
		if _, err := transform.ParseAlgorithm(c.IntenAlgorithm); err != nil {
			return &ConfigError{Reason: "inten_algorithm", Err: err}
		}
	}
	if c.Threads < 0 {
		return &ConfigError{Reason: "threads must be non-negative"}
	}
	if c.Blocksize < 0 {
		return &ConfigError{Reason: "blocksize must be non-negative"}
	}
	if c.Divisions < 0 {
		return &ConfigError{Reason: "divisions must be non-negative"}
	}
	return nil
}
