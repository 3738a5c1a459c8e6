package blanklogo

import "github.com/IsaiahDupree/BlankLogo-sub004/id"

// ID is the primary identifier type for all BlankLogo entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
