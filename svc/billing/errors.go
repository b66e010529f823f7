package billing

import "errors"

var (
	ErrCMSRequest          = errors.New("plan catalog request failed")
	ErrCMSResponse         = errors.New("unexpected plan catalog response")
	ErrCatalogFile         = errors.New("failed to read plan catalog file")
	ErrArchiveBucket       = errors.New("archive bucket is not configured")
	ErrArchiveUpload       = errors.New("failed to archive webhook event")
	ErrStoreQuery          = errors.New("subscription store query failed")
	ErrConstraintViolation = errors.New("subscription row violates a table constraint")
)
