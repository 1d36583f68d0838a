package export

import "errors"

// ErrEmptyList is returned when a document export is requested for a
// shopping list without items.
var ErrEmptyList = errors.New("shopping list is empty")
