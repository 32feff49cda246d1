package storage

import "context"

// mutatingOp enumerates operation kinds the Admission Controller treats as
// writes, gated by the effective read_only flag.
type mutatingOp int

const (
	opRead mutatingOp = iota
	opWrite
)

// admission is a global counting semaphore gating request entry, with FIFO
// wake-up order guaranteed by Go's buffered-channel semaphore pattern.
type admission struct {
	permits  chan struct{}
	readOnly func() bool
}

// newAdmission constructs an admission controller with the given global
// concurrency limit. readOnly reports the service-level read_only flag;
// per-bucket read_only is additionally checked by callers that know the
// target bucket (see Engine.checkWritable).
func newAdmission(limit int, readOnly func() bool) *admission {
	if limit <= 0 {
		limit = 16
	}
	return &admission{permits: make(chan struct{}, limit), readOnly: readOnly}
}

// acquire blocks until a permit is available or ctx is cancelled. Op
// determines whether the global read_only flag is consulted before a
// handle would ever be acquired, rejecting mutating operations before
// any handle is acquired.
func (a *admission) acquire(ctx context.Context, op mutatingOp) (func(), error) {
	if op == opWrite && a.readOnly != nil && a.readOnly() {
		return nil, newErr(ErrAccessDenied, "", "", "service is read-only")
	}
	select {
	case a.permits <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	released := false
	release := func() {
		if released {
			return
		}
		released = true
		<-a.permits
	}
	return release, nil
}
