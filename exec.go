package qrstyle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/esimov/qrstyle/utils"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// maxWorkers sets the maximum number of concurrently running workers.
const maxWorkers = 20

// jobExt is the extension of the job files picked up from a directory.
const jobExt = ".json"

// Ops describes where the jobs are read from and where the images go.
type Ops struct {
	// Src is a job file, a directory of job files or PipeName for stdin.
	Src string
	// Dst is the output file, the output directory or PipeName for stdout.
	Dst      string
	PipeName string
	Workers  int
	// Status receives the human readable progress messages. Nil discards them.
	Status  io.Writer
	Spinner *utils.Spinner
}

// result holds the outcome of a single job.
type result struct {
	src, dst string
	err      error
}

// Execute runs the jobs described by op. A directory source is walked
// recursively and its job files are rendered concurrently into the
// destination directory, sharing the processor and its asset cache.
// An image file is only created once its render succeeded.
func (p *Processor) Execute(ctx context.Context, op *Ops) error {
	var (
		fs  os.FileInfo
		err error
	)
	if op.Src == op.PipeName {
		fs, err = os.Stdin.Stat()
	} else {
		fs, err = os.Stat(op.Src)
	}
	if err != nil {
		return fmt.Errorf("failed to load the job: %w", err)
	}

	now := time.Now()
	if op.Spinner != nil {
		op.Spinner.Start()
	}

	switch mode := fs.Mode(); {
	case mode.IsDir():
		if err := os.MkdirAll(op.Dst, 0755); err != nil {
			op.stopSpinner()
			return fmt.Errorf("unable to create the destination directory: %w", err)
		}

		// Limit the concurrently running workers to maxWorkers.
		workers := op.Workers
		if workers <= 0 || workers > maxWorkers {
			workers = runtime.NumCPU()
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		// Process recursively the job files from the specified directory concurrently.
		ch := make(chan result)
		paths, errc := walkDir(ctx, op.Src, jobExt)

		var wg sync.WaitGroup
		wg.Add(workers)
		for i := 0; i < workers; i++ {
			go func() {
				defer wg.Done()
				op.consumer(ctx, p, ch, paths)
			}()
		}

		// Close the channel after the values are consumed.
		go func() {
			defer close(ch)
			wg.Wait()
		}()

		var errs []error
		for res := range ch {
			op.stopSpinner()
			if res.err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", res.src, res.err))
			}
			op.printOpStatus(res)
		}
		if err := <-errc; err != nil {
			errs = append(errs, err)
		}
		// Results are dropped once canceled, so report the cancellation itself.
		if cerr := ctx.Err(); cerr != nil && !errors.Is(errors.Join(errs...), cerr) {
			errs = append(errs, cerr)
		}
		err = errors.Join(errs...)

	case mode.IsRegular() || mode&os.ModeNamedPipe != 0 || op.Src == op.PipeName:
		res := result{src: op.Src}
		res.dst, res.err = op.process(ctx, p, op.Src, op.Dst, false)
		op.stopSpinner()
		op.printOpStatus(res)
		err = res.err

	default:
		op.stopSpinner()
		return fmt.Errorf("unsupported source %s", op.Src)
	}
	op.stopSpinner()

	p.logger().Info("jobs done", zap.String("src", op.Src), zap.Duration("elapsed", time.Since(now)), zap.Error(err))
	if err == nil {
		op.printf("\nExecution time: %s\n", utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage))
	}
	return err
}

// consumer reads the job paths from the paths channel and renders them into
// the destination directory.
func (op *Ops) consumer(ctx context.Context, p *Processor, res chan<- result, paths <-chan string) {
	for src := range paths {
		dst, err := op.process(ctx, p, src, op.Dst, true)

		select {
		case <-ctx.Done():
			return
		case res <- result{src: src, dst: dst, err: err}:
		}
	}
}

// process renders the job read from in. When intoDir is set, out is a
// directory and the image is named after the job file. It returns the
// path of the written image.
func (op *Ops) process(ctx context.Context, p *Processor, in, out string, intoDir bool) (string, error) {
	src, err := op.openSource(in)
	if err != nil {
		return "", err
	}
	defer src.Close()

	job, err := DecodeJob(src)
	if err != nil {
		return "", err
	}

	format := job.Format
	switch {
	case format != "":
	case !intoDir && out != op.PipeName && filepath.Ext(out) != "":
		if format, err = ParseFormat(out); err != nil {
			return "", err
		}
	default:
		format = p.Format
	}
	if intoDir {
		name := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
		out = filepath.Join(out, name+format.Ext())
	}

	data, err := p.render(ctx, job.Content, job.Style, format)
	if err != nil {
		return out, err
	}

	if out == op.PipeName {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return out, errors.New("`-` should be used with a pipe for stdout")
		}
		_, err = os.Stdout.Write(data)
		return out, err
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return out, fmt.Errorf("unable to create the destination file: %w", err)
	}
	return out, nil
}

func (op *Ops) openSource(in string) (io.ReadCloser, error) {
	if in == op.PipeName {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, errors.New("`-` should be used with a pipe for stdin")
		}
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(in)
	if err != nil {
		return nil, fmt.Errorf("unable to open the job file: %w", err)
	}
	return f, nil
}

// printOpStatus displays the outcome of a single job.
func (op *Ops) printOpStatus(res result) {
	if res.err != nil {
		op.printf("%s %s\n",
			utils.DecorateText(fmt.Sprintf("\nError rendering %s:", filepath.Base(res.src)), utils.ErrorMessage),
			utils.DecorateText(fmt.Sprintf("\n\tReason: %v", res.err), utils.DefaultMessage),
		)
		return
	}
	if res.dst != op.PipeName {
		op.printf("\nThe code has been saved as: %s %s\n",
			utils.DecorateText(filepath.Base(res.dst), utils.SuccessMessage),
			utils.DefaultColor,
		)
	}
}

func (op *Ops) stopSpinner() {
	if op.Spinner != nil {
		op.Spinner.Stop()
	}
}

func (op *Ops) printf(format string, args ...any) {
	if op.Status != nil {
		fmt.Fprintf(op.Status, format, args...)
	}
}

// walkDir starts a new goroutine to walk the specified directory tree
// in recursive manner and sends the path of each job file to a new channel.
// It finishes when the context is canceled.
func walkDir(ctx context.Context, src, ext string) (<-chan string, <-chan error) {
	pathChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		// Close the paths channel after Walk returns.
		defer close(pathChan)

		errChan <- filepath.Walk(src, func(path string, f os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !f.Mode().IsRegular() || filepath.Ext(f.Name()) != ext {
				return nil
			}

			select {
			case <-ctx.Done():
				return fmt.Errorf("directory walk cancelled: %w", ctx.Err())
			case pathChan <- path:
			}
			return nil
		})
	}()
	return pathChan, errChan
}
