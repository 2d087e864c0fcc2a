package repository

import "errors"

var (
	ErrMalformedReference     = errors.New("malformed reference element")
	ErrTransportFailure       = errors.New("probe transport failure")
	ErrUnresolvedRewriteInput = errors.New("rewrite input is missing or malformed")
	ErrPersistenceFailure     = errors.New("content store update failed")
	ErrNoMatch                = errors.New("old element does not occur in document content")
	ErrDocumentNotFound       = errors.New("document not found")
	ErrRunNotFound            = errors.New("audit run not found")
)
