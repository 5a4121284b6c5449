package steps

import (
	"github.com/packline/packline/internal/step"
	"github.com/packline/packline/internal/steps/announce"
	"github.com/packline/packline/internal/steps/build"
	"github.com/packline/packline/internal/steps/clean"
	"github.com/packline/packline/internal/steps/enumerate"
)

// RegisterBuiltins installs all of the built-in step factories into the
// provided registry.
func RegisterBuiltins(reg *step.Registry) {
	if reg == nil {
		return
	}
	clean.Register(reg)
	build.Register(reg)
	enumerate.Register(reg)
	announce.Register(reg)
}
