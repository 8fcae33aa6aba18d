//go:build windows || no_cgo

package nlp

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

// NewSLSQP is not supported without cgo.
func NewSLSQP(logger golog.Logger) (*SLSQP, error) {
	return nil, errors.New("slsqp is not supported on this build")
}

// SLSQP mimics the type in the cgo compiled code.
type SLSQP struct{}

// Minimize refuses to solve problems without cgo.
func (s *SLSQP) Minimize(ctx context.Context, prob Problem) (Result, error) {
	return Result{}, errors.New("cannot solve without cgo")
}
