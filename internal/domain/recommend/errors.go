package recommend

import "errors"

// ErrInconsistent reports a similarity index that was not built for the catalog.
var ErrInconsistent = errors.New("similarity index does not match catalog")
