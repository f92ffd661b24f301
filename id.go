package docflow

import "github.com/xraph/docflow/id"

// ID is the primary identifier type for all docflow entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
