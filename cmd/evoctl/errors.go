package main

import (
	"errors"

	"github.com/PaiCY-T/evoengine/internal/errs"
)

func isSchedulerInvariant(err error) bool {
	return errors.Is(err, errs.ErrSchedulerInvariant) || errors.Is(err, errs.ErrInsufficientPopulation)
}

func isValidationFailure(err error) bool {
	return errors.Is(err, errs.ErrConfigInvalid)
}
