package core

import "errors"

// Sentinel errors shared by every package of the module.
// Packages wrap them with context using fmt.Errorf("...: %w", err); callers match with errors.Is.
var (
	// ErrConfigurationShape reports a configuration that is not a neighbors×5 array,
	// or a dataset whose configurations disagree on the neighbor count.
	ErrConfigurationShape = errors.New("configuration shape mismatch")

	// ErrUnsupportedKernel reports an unknown body order or kernel name.
	ErrUnsupportedKernel = errors.New("unsupported kernel")

	// ErrUnsupportedMethod reports an unknown strategy, metric or worker pool name.
	ErrUnsupportedMethod = errors.New("unsupported method")

	// ErrInsufficientData reports a pool smaller than the requested train and test sizes.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrNotImplementedGradient is returned whenever the gradient of a Gram matrix is requested.
	ErrNotImplementedGradient = errors.New("gradient of the gram matrix is not implemented")

	// ErrSingularMatrix reports a regularized system that is not positive definite.
	ErrSingularMatrix = errors.New("singular regularized matrix")

	// ErrNotFitted is returned when a model is used for prediction or update before fitting.
	ErrNotFitted = errors.New("model is not fitted")

	// ErrInvalidParameter reports an out-of-range numeric parameter.
	ErrInvalidParameter = errors.New("invalid parameter")
)
