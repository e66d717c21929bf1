// Package ioview supplies the "flat byte view" and "appendable sink"
// external collaborators the core pipeline consumes: a fully-buffered
// view of an input mzML document (the scanner and divider both require
// random access into the whole file) and a destination for the
// compressed/decompressed output. It stays thin: names starting with
// "http" are fetched with net/http, and all other local and S3 access is
// delegated to github.com/grailbio/base/file.
package ioview

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/grailbio/base/file"
)

// Open returns a fully-buffered view of name's contents plus a cleanup
// function, reading the whole body eagerly
// since the divider needs random access across the entire input before
// any division can be planned.
func Open(ctx context.Context, name string) ([]byte, func(context.Context) error, error) {
	if strings.HasPrefix(name, "http") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, name, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("ioview: fetch %s: %w", name, err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, nil, fmt.Errorf("ioview: fetch %s: %w", name, err)
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, nil, fmt.Errorf("ioview: read %s: %w", name, err)
		}
		return data, func(context.Context) error { return nil }, nil
	}

	f, err := file.Open(ctx, name)
	if err != nil {
		return nil, nil, fmt.Errorf("ioview: open %s: %w", name, err)
	}
	data, err := io.ReadAll(f.Reader(ctx))
	if err != nil {
		f.Close(ctx)
		return nil, nil, fmt.Errorf("ioview: read %s: %w", name, err)
	}
	return data, f.Close, nil
}

// Create returns a writable sink for name, or os.Stdout when name is
// empty.
func Create(ctx context.Context, name string) (io.Writer, func(context.Context) error, error) {
	if len(name) == 0 {
		return os.Stdout, func(context.Context) error { return nil }, nil
	}
	f, err := file.Create(ctx, name)
	if err != nil {
		return nil, nil, fmt.Errorf("ioview: create %s: %w", name, err)
	}
	return f.Writer(ctx), f.Close, nil
}
