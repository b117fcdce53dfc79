package service

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// TaskError accumulates the failures of a batch run.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	}
	var b strings.Builder
	b.WriteString("multiple errors:")
	for _, err := range e.Errors {
		b.WriteString(" ")
		b.WriteString(err.Error())
		b.WriteString(";")
	}
	return b.String()
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *TaskError) Unwrap() []error {
	return e.Errors
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Enrollment is the subset of Enroller used by the batch runner.
type Enrollment interface {
	Enroll(ctx context.Context, in Applicant) (EnrollmentResult, error)
}

// BatchEnroller runs many applicants through a bounded worker pool. Each
// applicant gets its own wizard, so workers never share state.
type BatchEnroller struct {
	enroller Enrollment
	workers  int
}

// NewBatchEnroller creates a BatchEnroller with the provided concurrency.
func NewBatchEnroller(enroller Enrollment, workers int) *BatchEnroller {
	if workers <= 0 {
		workers = 4
	}
	return &BatchEnroller{enroller: enroller, workers: workers}
}

// EnrollAll processes applicants concurrently. Results keep the input order.
// An applicant whose account was created keeps its result even when a later
// step failed; other failures leave a zero result at their index.
func (b *BatchEnroller) EnrollAll(ctx context.Context, applicants []Applicant) ([]EnrollmentResult, error) {
	results := make([]EnrollmentResult, len(applicants))
	err := b.run(ctx, len(applicants), func(idx int) error {
		res, err := b.enroller.Enroll(ctx, applicants[idx])
		if err == nil || res.AccountID != "" {
			results[idx] = res
		}
		return err
	})
	return results, err
}

func (b *BatchEnroller) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexCh {
				if err := workerFn(idx); err != nil {
					errCh <- err
				}
			}
		}()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	if err := ctx.Err(); err != nil {
		return err
	}
	var taskErr TaskError
	for err := range errCh {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}
