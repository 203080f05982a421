// Package ext defines the extension system of the job engine.
//
// Extensions are notified of lifecycle events and can react to them by
// recording metrics or writing audit logs. Each lifecycle hook is a
// separate interface so extensions opt in only to the events they care
// about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	func (e *MyExtension) OnJobDiscarded(ctx context.Context, j *job.Job, rule string, err error) error {
//	    log.Printf("job %s discarded by %s: %v", j.ID, rule, err)
//	    return nil
//	}
//
// # Hooks
//
//   - [JobEnqueued]: job was accepted into the queue
//   - [JobStarted]: worker began executing the job
//   - [JobCompleted]: job finished successfully
//   - [JobFailed]: job failed with no attempts remaining
//   - [JobRetrying]: job failed but will be retried
//   - [JobDiscarded]: a discard rule dropped the job
//   - [Shutdown]: the engine is shutting down gracefully
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface.
package ext
