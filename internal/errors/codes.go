package errors

// Error codes this optimizer can raise, per spec.md §7's error taxonomy.
// Trimmed from the teacher's full Postgres SQLSTATE catalog: pushdown never
// touches constraints or transaction state, so only these three kinds have
// a home here.
const (
	// InternalError is the code GetError gives to any error that is not
	// already an *Error.
	InternalError = "internal_error"
	// FeatureNotSupported is raised when the join rewrite meets a join type
	// outside INNER/LEFT/RIGHT/FULL. A plan-node variant the driver does
	// not know raises no error: it gets the inherited predicate as a Filter
	// above it.
	FeatureNotSupported = "feature_not_supported"
	// InvariantViolation is raised when an inherited predicate references
	// AssignUniqueId's id column, or when a spatial join's predicate folds
	// to FALSE during rewrite. Effective predicates are not checked against
	// the output symbols of the node they describe.
	InvariantViolation = "invariant_violation"
)
