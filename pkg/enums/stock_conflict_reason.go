package enums

// StockConflictReason explains why a cart line cannot be fulfilled.
type StockConflictReason string

const (
	StockReasonMissing      StockConflictReason = "missing"
	StockReasonInactive     StockConflictReason = "inactive"
	StockReasonInsufficient StockConflictReason = "insufficient"
)
