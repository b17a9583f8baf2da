package domain

import "errors"

var (
	// ErrSourceNotFound means the requested source id does not exist.
	ErrSourceNotFound = errors.New("source not found")

	// ErrUnsupportedSourceType means no fetch strategy is registered for the
	// source's type.
	ErrUnsupportedSourceType = errors.New("unsupported source type")

	// ErrEmptyContent marks an upstream message with no usable text. It is a
	// skip condition, not a failure.
	ErrEmptyContent = errors.New("message has no text content")

	// ErrDuplicateContent is returned by the content store when
	// (source_id, external_id) already exists. Callers recover by reading the
	// existing row.
	ErrDuplicateContent = errors.New("content already exists")

	// ErrContentNotFound means a content lookup matched nothing.
	ErrContentNotFound = errors.New("content not found")
)
