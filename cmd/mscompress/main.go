package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"cloudeng.io/errors"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/schollz/progressbar/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/chrisagrams/mscompress"
	"github.com/chrisagrams/mscompress/internal/pipeline"
	"github.com/chrisagrams/mscompress/ioview"
)

func init() {
	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(
			s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})
}

type commonFlags struct {
	concurrency      int
	blocksize        int64
	divisions        int
	compressionLevel int
	algorithm        string
	mzAlgorithm      string
	intenAlgorithm   string
	output           string
	progress         bool
}

func (f *commonFlags) register(fs *cobra.Command) {
	fs.Flags().IntVar(&f.concurrency, "threads", 0, "worker thread count, 0 selects GOMAXPROCS")
	fs.Flags().Int64Var(&f.blocksize, "blocksize", 0, "target division size in bytes, 0 derives from thread count")
	fs.Flags().IntVar(&f.divisions, "divisions", 0, "division count, 0 derives from blocksize")
	fs.Flags().IntVar(&f.compressionLevel, "level", 3, "zstd compression level")
	fs.Flags().StringVar(&f.algorithm, "algorithm", "lossless", "transform algorithm for both arrays")
	fs.Flags().StringVar(&f.mzAlgorithm, "mz-algorithm", "", "per-role override for the mz array")
	fs.Flags().StringVar(&f.intenAlgorithm, "inten-algorithm", "", "per-role override for the intensity array")
	fs.Flags().StringVar(&f.output, "output", "", "output file or s3 path, omit for stdout")
	fs.Flags().BoolVar(&f.progress, "progress", true, "display a progress bar")
}

func (f *commonFlags) config() mscompress.Config {
	cfg := mscompress.DefaultConfig()
	if f.concurrency > 0 {
		cfg.Threads = f.concurrency
	}
	cfg.Blocksize = f.blocksize
	cfg.Divisions = f.divisions
	cfg.CompressionLevel = f.compressionLevel
	cfg.Algorithm = f.algorithm
	cfg.MzAlgorithm = f.mzAlgorithm
	cfg.IntenAlgorithm = f.intenAlgorithm
	return cfg
}

func main() {
	root := &cobra.Command{
		Use:   "mscompress",
		Short: "compress and decompress mzML mass-spectrometry documents",
	}

	var cf commonFlags
	compressCmd := &cobra.Command{
		Use:   "compress [input]",
		Short: "compress an mzML document, or stdin if no input is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompress(cmd.Context(), &cf, args)
		},
	}
	cf.register(compressCmd)
	root.AddCommand(compressCmd)

	var df commonFlags
	decompressCmd := &cobra.Command{
		Use:   "decompress input",
		Short: "decompress an mscompress container file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecompress(cmd.Context(), &df, args)
		},
	}
	df.register(decompressCmd)
	root.AddCommand(decompressCmd)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "mscompress: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	switch {
	case isKind[*mscompress.ConfigError](err):
		return 2
	case isKind[*mscompress.MalformedInputError](err):
		return 3
	case isKind[*mscompress.CodecError](err):
		return 4
	case isKind[*mscompress.IOError](err):
		return 5
	case isKind[*mscompress.AllocError](err):
		return 6
	default:
		return 1
	}
}

func isKind[T error](err error) bool {
	var target T
	return stderrors.As(err, &target)
}

func runCompress(ctx context.Context, cf *commonFlags, args []string) error {
	var (
		input      []byte
		readerDone func(context.Context) error = func(context.Context) error { return nil }
		err        error
	)
	if len(args) == 0 {
		input, err = io.ReadAll(os.Stdin)
	} else {
		input, readerDone, err = ioview.Open(ctx, args[0])
	}
	if err != nil {
		return err
	}
	defer readerDone(ctx)

	wr, writerDone, err := ioview.Create(ctx, cf.output)
	if err != nil {
		return err
	}

	errs := &errors.M{}
	var progressCh chan pipeline.Progress
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	if cf.progress && (len(cf.output) > 0 || !isTTY) {
		progressCh = make(chan pipeline.Progress, 16)
		go runProgressBar(ctx, progressWriter(isTTY), progressCh, int64(len(input)))
	}

	cfg := cf.config()
	compressErr := mscompress.Compress(ctx, cfg, input, wr, mscompress.WithCompressProgress(progressCh))
	errs.Append(compressErr)
	if progressCh != nil {
		close(progressCh)
	}
	errs.Append(writerDone(ctx))
	return errs.Err()
}

func runDecompress(ctx context.Context, cf *commonFlags, args []string) error {
	data, readerDone, err := ioview.Open(ctx, args[0])
	if err != nil {
		return err
	}
	defer readerDone(ctx)

	wr, writerDone, err := ioview.Create(ctx, cf.output)
	if err != nil {
		return err
	}

	errs := &errors.M{}
	var progressCh chan pipeline.Progress
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	if cf.progress && (len(cf.output) > 0 || !isTTY) {
		progressCh = make(chan pipeline.Progress, 16)
		go runProgressBar(ctx, progressWriter(isTTY), progressCh, int64(len(data)))
	}

	decompressErr := mscompress.Decompress(ctx, data, wr,
		mscompress.WithDecompressConcurrency(cf.concurrency),
		mscompress.WithDecompressProgress(progressCh))
	errs.Append(decompressErr)
	if progressCh != nil {
		close(progressCh)
	}
	errs.Append(writerDone(ctx))
	return errs.Err()
}

func progressWriter(isTTY bool) *os.File {
	if isTTY {
		return os.Stdout
	}
	return os.Stderr
}

func runProgressBar(ctx context.Context, w io.Writer, ch <-chan pipeline.Progress, size int64) {
	bar := progressbar.NewOptions64(size,
		progressbar.OptionSetBytes64(size),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetPredictTime(true))
	bar.RenderBlank()
	for {
		select {
		case p, ok := <-ch:
			if !ok {
				fmt.Fprintf(w, "\n")
				return
			}
			bar.Add(p.Original)
		case <-ctx.Done():
			return
		}
	}
}
