package mdsync

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeDuplicatePair  = "DUPLICATE_PAIR"
	textCodeIncompletePair = "INCOMPLETE_PAIR"
	textCodeUnknownPair    = "UNKNOWN_PAIR"
	textCodeUnknownEvent   = "UNKNOWN_EVENT"
	textCodeBaseMismatch   = "BASE_MISMATCH"
	textCodeInvalidPath    = "INVALID_PATH"
	textCodeInvalidConfig  = "INVALID_CONFIG"
	textCodeParseFailed    = "PARSE_FAILED"
)

func duplicatePairError(key string) error {
	return goerrors.New("document pair already registered", goerrors.CategoryConflict).
		WithTextCode(textCodeDuplicatePair).
		WithMetadata(map[string]any{"key": key})
}

func incompletePairError(key, missing string) error {
	return goerrors.New("document pair is missing a surface", goerrors.CategoryValidation).
		WithTextCode(textCodeIncompletePair).
		WithMetadata(map[string]any{"key": key, "missing": missing})
}

func unknownPairError(key string) error {
	return goerrors.New("no document pair for key", goerrors.CategoryNotFound).
		WithTextCode(textCodeUnknownPair).
		WithMetadata(map[string]any{"key": key})
}

func unknownEventError(ev Event) error {
	return goerrors.New("unsupported event type", goerrors.CategoryBadInput).
		WithTextCode(textCodeUnknownEvent).
		WithMetadata(map[string]any{"type": fmt.Sprintf("%T", ev)})
}

func baseMismatchError(expected, actual string) error {
	return goerrors.New("delta base hash does not match document", goerrors.CategoryConflict).
		WithTextCode(textCodeBaseMismatch).
		WithMetadata(map[string]any{"expected": expected, "actual": actual})
}

func invalidPathError(path NodePath, op OpType) error {
	return goerrors.New("operation path does not resolve", goerrors.CategoryBadInput).
		WithTextCode(textCodeInvalidPath).
		WithMetadata(map[string]any{"path": path.String(), "op": string(op)})
}

func parseError(err error, what string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to parse "+what).
		WithTextCode(textCodeParseFailed)
}

func configError(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.FromOzzoValidation(err, "invalid mdsync configuration").
		WithTextCode(textCodeInvalidConfig)
}
