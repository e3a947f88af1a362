package repository

import "errors"

var (
	// ErrVersionConflict means another writer updated the row since it was read.
	ErrVersionConflict = errors.New("approval request version conflict")
	// ErrPolicyInUse means open requests still reference the policy.
	ErrPolicyInUse = errors.New("approval policy referenced by open requests")
	// ErrPolicyRemoved means the policy a new request was matched to no longer exists.
	ErrPolicyRemoved = errors.New("approval policy removed before request was stored")
)
