// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmptyPlan indicates an execution plan with zero sub-queries was
// submitted. This is the only engine-level hard failure during execution.
var ErrEmptyPlan = errors.New("execution plan has no sub-queries")
