package types

import "errors"

// Sentinel errors for condfield operations.
var (
	// ErrMalformedConditions indicates the stored condition JSON cannot be decoded.
	ErrMalformedConditions = errors.New("malformed condition configuration")

	// ErrEmptyConditions indicates a conditional field without any configured conditions.
	ErrEmptyConditions = errors.New("condition configuration is empty")

	// ErrHiddenRequired indicates a field that is both required and hidden under one option.
	ErrHiddenRequired = errors.New("field is both required and hidden for the same option")

	// ErrNotAField indicates a condition references a shortname with no field definition.
	ErrNotAField = errors.New("referenced identifier is not a field")

	// ErrOptionMismatch indicates the condition options no longer match the field options.
	ErrOptionMismatch = errors.New("options and conditions mismatch")

	// ErrDuplicateOption indicates two conditions keyed by the same option.
	ErrDuplicateOption = errors.New("duplicate option in condition configuration")

	// ErrUnknownOption indicates a legacy index outside the option list.
	ErrUnknownOption = errors.New("option index out of range")

	// ErrTooManyConditions indicates the configuration exceeds MaxConditions.
	ErrTooManyConditions = errors.New("too many conditions")

	// ErrTooManyFields indicates a field set exceeds MaxFieldsPerSet.
	ErrTooManyFields = errors.New("too many fields in condition")

	// ErrFieldIDTooLong indicates a field identifier exceeds MaxFieldIDLength.
	ErrFieldIDTooLong = errors.New("field identifier too long")

	// ErrEmptyFieldID indicates a blank field identifier in a condition.
	ErrEmptyFieldID = errors.New("field identifier is empty")

	// ErrFieldNotFound indicates a field is absent from a snapshot or store.
	ErrFieldNotFound = errors.New("field not found")

	// ErrPathTooDeep indicates a snapshot path exceeds MaxPathDepth.
	ErrPathTooDeep = errors.New("field path exceeds maximum depth")

	// ErrSnapshotTooLarge indicates a submitted snapshot exceeds MaxSnapshotSize.
	ErrSnapshotTooLarge = errors.New("snapshot exceeds maximum size")

	// ErrNotConditional indicates an operation on a field that carries no conditions.
	ErrNotConditional = errors.New("field is not a conditional field")
)
