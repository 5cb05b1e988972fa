package dues

import "github.com/xraph/dues/id"

// ID is the primary identifier type for all Dues entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
