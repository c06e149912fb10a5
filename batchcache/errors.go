package batchcache

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

var (
	// ErrInvalidOperationConfiguration is returned when an operation
	// descriptor breaks one of its construction rules.
	ErrInvalidOperationConfiguration = errors.New("invalid operation configuration")
	// ErrAmbiguousOperation is returned when more than one operation is
	// registered for the same method.
	ErrAmbiguousOperation = errors.New("ambiguous operation")
	// ErrOperationNotFound is returned when no operation is registered for a method.
	ErrOperationNotFound = errors.New("operation not found")
	// ErrModeMismatch is returned when a bulk operation is invoked with
	// identifiers or the other way around.
	ErrModeMismatch = errors.New("operation mode mismatch")
	// ErrInvalidKey is returned when a key deriver yields an empty key.
	ErrInvalidKey = errors.New("invalid cache key")
	// ErrUnsupportedContainerKind is returned when no materializer handles
	// the declared container kind.
	ErrUnsupportedContainerKind = errors.New("unsupported container kind")
	// ErrMissingKeyCapability is returned when a list element does not
	// expose its own cache key.
	ErrMissingKeyCapability = errors.New("element does not expose a cache key")
	// ErrReturnShapeMismatch is returned when a source result does not have
	// the shape the operation declares.
	ErrReturnShapeMismatch = errors.New("return shape mismatch")
)

func newError(sentinel error, category goerrors.Category, message string, meta map[string]any) error {
	err := goerrors.New(message, category)
	err.Source = sentinel
	if len(meta) > 0 {
		err = err.WithMetadata(meta)
	}
	return err
}

func wrapError(sentinel, cause error, category goerrors.Category, message string, meta map[string]any) error {
	err := goerrors.New(message, category).WithMetadata(meta)
	err.Source = fmt.Errorf("%w: %w", sentinel, cause)
	return err
}

// configError keeps ozzo field errors on the returned error while still
// matching ErrInvalidOperationConfiguration.
func configError(method string, cause error) error {
	err := goerrors.FromOzzoValidation(cause, fmt.Sprintf("operation %q is misconfigured", method))
	err.Source = fmt.Errorf("%w: %w", ErrInvalidOperationConfiguration, cause)
	return err.WithMetadata(map[string]any{"operation": method})
}

func shapeMismatch(shape string, got any) error {
	return newError(ErrReturnShapeMismatch, goerrors.CategoryBadInput,
		fmt.Sprintf("%s shape cannot handle result of type %T", shape, got),
		map[string]any{"shape": shape, "type": fmt.Sprintf("%T", got)})
}

// annotate tags err with the operation name when it carries metadata.
func annotate(err error, op string) error {
	var ge *goerrors.Error
	if errors.As(err, &ge) {
		ge.WithMetadata(map[string]any{"operation": op})
	}
	return err
}
