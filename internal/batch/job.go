package batch

import (
	"context"

	"github.com/Nomadcxx/albumdrop/internal/album"
)

// Update is one message from a running Job. Exactly one of Progress and
// Outcome is set.
type Update struct {
	Progress *Progress
	Outcome  *album.Outcome
}

// Job is a batch running on its own goroutine.
type Job struct {
	cancel  context.CancelFunc
	updates chan Update
	done    chan struct{}
	summary Summary
}

// Start runs ExtractAll on a single background goroutine and returns
// immediately. It fails with ErrBusy if the driver is already running a
// batch.
func (d *Driver) Start(ctx context.Context, records []album.MatchRecord, libraryRoot string) (*Job, error) {
	if !d.mu.TryLock() {
		return nil, ErrBusy
	}

	ctx, cancel := context.WithCancel(ctx)
	job := &Job{
		cancel: cancel,
		// Two progress snapshots plus one outcome per record never block
		// the worker, even if nobody reads.
		updates: make(chan Update, 2*len(records)+2),
		done:    make(chan struct{}),
	}

	go func() {
		defer d.mu.Unlock()
		defer close(job.done)
		defer close(job.updates)
		defer cancel()

		job.summary = d.run(ctx, records, libraryRoot,
			func(p Progress) { job.updates <- Update{Progress: &p} },
			func(o album.Outcome) { job.updates <- Update{Outcome: &o} },
		)
	}()

	return job, nil
}

// Updates delivers snapshots in the order they happened. The channel is
// closed when the batch ends.
func (j *Job) Updates() <-chan Update {
	return j.updates
}

// Cancel asks the batch to stop before its next record.
func (j *Job) Cancel() {
	j.cancel()
}

// Done is closed when the batch has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the batch ends and returns its summary.
func (j *Job) Wait() Summary {
	<-j.done
	return j.summary
}
