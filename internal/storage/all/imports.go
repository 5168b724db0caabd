// Package all wires the built-in storage backends into the storage factory.
//
// It exists purely for side effects: a blank import runs the init functions
// of each backend, which register their factories with the storage package.
// Importing it makes the "sqlite" and "postgres" sink kinds available at
// runtime. Binaries wanting a subset can blank-import individual backends
// instead.
package all

import (
	_ "github.com/NiranjGaurav/AutomationReader/internal/storage/postgres"
	_ "github.com/NiranjGaurav/AutomationReader/internal/storage/sqlite"
)
