package docflow

import "errors"

var (
	// Schema errors.
	ErrStateNotFound   = errors.New("docflow: non-existing state")
	ErrUnauthorized    = errors.New("docflow: unauthorized")
	ErrFinal           = errors.New("docflow: schema already finalized")
	ErrEdgeToZero      = errors.New("docflow: edge to state zero")
	ErrEdgeBroken      = errors.New("docflow: edge to non-existing state")
	ErrNotFinal        = errors.New("docflow: schema not finalized")
	ErrEdgeNotFound    = errors.New("docflow: non-existing edge")
	ErrRightNotAllowed = errors.New("docflow: right not allowed on edge")
	ErrRightChange     = errors.New("docflow: inconsistent rights")
	ErrNoSuchRight     = errors.New("docflow: right not found")

	// Workflow instance errors.
	ErrInvalidSE      = errors.New("docflow: invalid state schema")
	ErrInvalidWFM     = errors.New("docflow: invalid workflow registry")
	ErrEmptyDocSet    = errors.New("docflow: empty doc set")
	ErrWrongUSN       = errors.New("docflow: wrong usn")
	ErrNotUninit      = errors.New("docflow: only when uninit")
	ErrCannotCross    = errors.New("docflow: cannot cross to state")
	ErrSkewedInput    = errors.New("docflow: skewed input")
	ErrInvalidDocType = errors.New("docflow: invalid doc type")
	ErrInvalidDocHash = errors.New("docflow: invalid doc hash")
	ErrDocTypeLimit   = errors.New("docflow: doc type count exceeded limit")
	ErrRepeatedDocID  = errors.New("docflow: repeated doc id")
	ErrMissingDoc     = errors.New("docflow: required docs missing")
	ErrNotRunning     = errors.New("docflow: only when running")
	ErrEmptyReview    = errors.New("docflow: empty review")
	ErrDocNotFound    = errors.New("docflow: doc not found")

	// Registry errors.
	ErrUninitWF   = errors.New("docflow: uninitialized workflow cannot be removed")
	ErrRunningWF  = errors.New("docflow: workflow still not concluded")
	ErrInvalidPos = errors.New("docflow: invalid pagination cursor")

	// Access errors.
	ErrCantGrant    = errors.New("docflow: sender must be an admin to grant")
	ErrCantRevoke   = errors.New("docflow: sender must be an admin to revoke")
	ErrCantRenounce = errors.New("docflow: can only renounce roles for self")

	// Lookup errors.
	ErrSchemaNotFound   = errors.New("docflow: schema not found")
	ErrWorkflowNotFound = errors.New("docflow: workflow not found")
	ErrReceiptNotFound  = errors.New("docflow: receipt not found")
	ErrEventNotFound    = errors.New("docflow: event not found")

	// Store errors.
	ErrNoStore         = errors.New("docflow: no store configured")
	ErrStoreClosed     = errors.New("docflow: store closed")
	ErrMigrationFailed = errors.New("docflow: migration failed")
	ErrHistoryExists   = errors.New("docflow: history entry already archived")

	// Submission errors.
	ErrRateLimited = errors.New("docflow: submission rate limited")
)
