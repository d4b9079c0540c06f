package memo

import "errors"

// ErrComparator is returned when a comparator panics while deciding whether
// an input snapshot changed. The cell does not fall back to another
// comparator; the evaluation fails and the stored snapshot is kept.
var ErrComparator = errors.New("memo: comparator failed")

// ErrDepsLength is returned when a dependency list has a different length
// than the list stored by the previous evaluation at the same cache.
// Positional comparison is meaningless once the shape changes.
var ErrDepsLength = errors.New("memo: dependency list changed length")
