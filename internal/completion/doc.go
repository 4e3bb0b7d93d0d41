// Package completion provides the resilient chat-completion client.
//
// A Client sends a single-prompt chat completion to an OpenRouter-compatible
// endpoint. It walks an ordered list of candidate models, retrying each one
// with exponential backoff on transient failures (HTTP 408/429, timeouts,
// connection errors) and falling through to the next candidate when a model
// is unavailable. Authentication failures and unclassified API errors abort
// the whole call.
//
// # State machine
//
// Every attempt produces an Outcome. RetryPolicy.Next maps the attempt index
// and the Outcome to the next Step (TryModel, Retrying, Abandoned, Succeeded,
// FatallyFailed) plus the delay to wait. The client loop only executes steps,
// so every edge can be tested by injecting outcomes.
//
// # Errors
//
// Failures are reported as typed errors (ConfigurationError,
// AuthenticationError, ModelUnavailableError, TransientError,
// UnclassifiedAPIError, ExhaustedError). ErrorKind maps any wrapped error to
// a stable label for API responses.
package completion
