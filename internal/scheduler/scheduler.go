package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/weaveget/weaveget/internal/download"
	"github.com/weaveget/weaveget/internal/gateway"
	"github.com/weaveget/weaveget/internal/output"
	"github.com/weaveget/weaveget/internal/sink"
	"github.com/weaveget/weaveget/internal/utils"
)

// Run downloads the given jobs with a bounded pool of workers. Each job keeps
// its own gateway client and chunk window; nothing is shared across jobs but
// the output manager.
func Run(jobs []utils.WeaveJob, numWorkers int) error {
	log := utils.GetLogger("scheduler")
	if numWorkers <= 0 {
		numWorkers = 1
	}
	outputMgr := output.NewManager()

	jobCh := make(chan utils.WeaveJob, len(jobs))
	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)

	errCh := make(chan error, len(jobs))
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				if err := processJob(job, outputMgr); err != nil {
					log.Error().Err(err).Str("tx", job.TxID).Msg("Download failed")
					errCh <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func processJob(job utils.WeaveJob, outputMgr *output.Manager) error {
	funcID := outputMgr.Register(job.OutputPath)
	outputMgr.SetMessage(funcID, fmt.Sprintf("Fetching metadata for %s", job.TxID))

	ctx := context.Background()
	client := gateway.NewClient(job.GatewayURL, job.HTTPClientConfig)
	stream, err := download.NewStream(ctx, client, job.TxID, download.Options{Concurrency: job.Concurrency})
	if err != nil {
		outputMgr.Error(funcID, err)
		return err
	}

	total := int64(-1)
	if size := stream.Size(); size.IsInt64() {
		total = size.Int64()
	}

	dest, err := sink.New(job.OutputPath)
	if err != nil {
		outputMgr.Error(funcID, err)
		return err
	}

	var written int64
	for {
		chunk, err := stream.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			dest.Close()
			outputMgr.Error(funcID, err)
			return err
		}
		n, err := dest.Write(chunk)
		written += int64(n)
		if err != nil {
			dest.Close()
			outputMgr.Error(funcID, err)
			return fmt.Errorf("error writing output: %v", err)
		}
		outputMgr.Progress(funcID, written, total)
		if job.ProgressFunc != nil {
			job.ProgressFunc(written, total)
		}
	}
	if err := dest.Close(); err != nil {
		outputMgr.Error(funcID, err)
		return err
	}
	outputMgr.Complete(funcID, fmt.Sprintf("Downloaded %s", output.FormatBytes(uint64(written))))
	return nil
}
