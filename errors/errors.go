package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EnvVarNotSetError is an error which is returned when a required env var is not set.
type EnvVarNotSetError struct {
	Var string
}

// NewEnvVarNotSetError returns an error for an envVarName whose value is not set.
func NewEnvVarNotSetError(envVarName string) *EnvVarNotSetError {
	return &EnvVarNotSetError{envVarName}
}

// Error implements the error interface.
func (e *EnvVarNotSetError) Error() string {
	return fmt.Sprintf("migrator: %s env variable not set", e.Var)
}

// UnsupportedIndexError is returned when an index has a mapping layout the
// migrator cannot handle, i.e. the mappings carry no top level "properties".
// It signals a structural incompatibility and must never be retried.
type UnsupportedIndexError struct {
	Index string
}

// NewUnsupportedIndexError returns an error for the given index.
func NewUnsupportedIndexError(index string) *UnsupportedIndexError {
	return &UnsupportedIndexError{index}
}

// Error implements the error interface.
func (u *UnsupportedIndexError) Error() string {
	return fmt.Sprintf("unsupported index: index %s has a legacy mapping layout that cannot be "+
		"automatically migrated, reset it or upgrade it first", u.Index)
}

// ShardFailureError is returned when a response reports that some of the
// shards involved in the request did not succeed.
type ShardFailureError struct {
	Op     string
	Failed int
	Total  int
}

// NewShardFailureError returns an error for an operation with failed shards.
func NewShardFailureError(op string, failed, total int) *ShardFailureError {
	return &ShardFailureError{op, failed, total}
}

// Error implements the error interface.
func (s *ShardFailureError) Error() string {
	return fmt.Sprintf("%s failed :: %d of %d shards failed. Check cluster health for more information.",
		s.Op, s.Failed, s.Total)
}

// BulkWriteError is returned when at least one document of a bulk request
// could not be written. Reason is the reason reported for the first failed
// item and Item is that item's raw response.
type BulkWriteError struct {
	Index  string
	Reason string
	Item   json.RawMessage
}

// NewBulkWriteError returns an error for the first failed item of a bulk write.
func NewBulkWriteError(index, reason string, item json.RawMessage) *BulkWriteError {
	return &BulkWriteError{index, reason, item}
}

// Error implements the error interface.
func (b *BulkWriteError) Error() string {
	return b.Reason
}

// ReindexTaskError is returned when an asynchronous reindex task reports an
// error, or completes with document failures.
type ReindexTaskError struct {
	TaskID string
	Type   string
	Reason string
	Raw    json.RawMessage
}

// NewReindexTaskError returns an error describing a failed reindex task.
func NewReindexTaskError(taskID, errType, reason string, raw json.RawMessage) *ReindexTaskError {
	return &ReindexTaskError{taskID, errType, reason, raw}
}

// Error implements the error interface.
func (r *ReindexTaskError) Error() string {
	return fmt.Sprintf("re-index failed [%s] %s :: %s", r.Type, r.Reason, string(r.Raw))
}

// StatusError is returned when the search engine answers a request with a
// non successful HTTP status.
type StatusError struct {
	Op     string
	Status int
	Err    error
}

// NewStatusError returns an error for a failed engine call.
func NewStatusError(op string, status int, err error) *StatusError {
	return &StatusError{op, status, err}
}

// Error implements the error interface.
func (s *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %v", s.Op, s.Status, s.Err)
}

// Unwrap returns the underlying transport error.
func (s *StatusError) Unwrap() error {
	return s.Err
}

// StatusCode returns the HTTP status carried by err, or 0 if err does not
// wrap a *StatusError.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}
	return 0
}

// MigrationInProgressError is returned when a migration would touch an
// index or alias that another running migration already holds.
type MigrationInProgressError struct {
	Name  string
	Owner string
}

// NewMigrationInProgressError returns an error for a name held by owner.
func NewMigrationInProgressError(name, owner string) *MigrationInProgressError {
	return &MigrationInProgressError{name, owner}
}

// Error implements the error interface.
func (m *MigrationInProgressError) Error() string {
	return fmt.Sprintf("%s is already being migrated by %s", m.Name, m.Owner)
}
