package query

import "errors"

var (
	// ErrMissingAsset means the question needs an asset but named none.
	ErrMissingAsset = errors.New("no asset referenced in question")

	// ErrUnrecognized means no usable intent could be formed at all.
	ErrUnrecognized = errors.New("question not recognized")

	// ErrUnsafeSQL means the safety gate rejected a generated query.
	// The offending SQL is carried on the accompanying Result.
	ErrUnsafeSQL = errors.New("generated SQL was rejected as unsafe")
)
