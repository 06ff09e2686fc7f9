package cart

import "errors"

// ErrInvalidQuantity is returned for a non-positive add, a negative set, or
// any change that would push a line above MaxQuantity.
var ErrInvalidQuantity = errors.New("invalid quantity")
