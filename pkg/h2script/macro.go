// Package h2script provides VTC (Varnish Test Case) language parsing and execution
package h2script

import (
	"github.com/nilbound/h2core/pkg/macro"
)

// MacroStore is an alias for macro.Store for backward compatibility
type MacroStore = macro.Store

// NewMacroStore creates a new macro store
func NewMacroStore() *MacroStore {
	return macro.New()
}
