package modkit

import "feedweave/internal/modkit/module"

// Module is re-exported so module packages need only modkit
type Module = module.Module
