// Package gate decides whether a process should run migrations at all.
//
// Two signals are combined: a declarative marker supplied by the host (for
// example runner.Enable() or the CLI's --enable flag) and the db.vcs.enabled
// property. Either one enables the run. Only the exact string "true" counts as
// an enabled property.
package gate

import (
	"github.com/pseudomuto/dbvcs/pkg/config"
	"github.com/pseudomuto/dbvcs/pkg/consts"
	"go.uber.org/zap"
)

const enabledValue = "true"

// Reason names the signal behind a Decision.
type Reason string

const (
	// ReasonMarker means the host declared the feature enabled.
	ReasonMarker Reason = "marker"

	// ReasonProperty means db.vcs.enabled is "true".
	ReasonProperty Reason = "property"

	// ReasonNone means neither signal was present.
	ReasonNone Reason = "none"
)

// Decision is the outcome of Evaluate.
type Decision struct {
	Enabled bool
	Reason  Reason
}

// Evaluate combines the marker and the db.vcs.enabled property. A nil cfg
// counts as an unset property.
func Evaluate(marker bool, cfg *config.Config) Decision {
	if marker {
		return Decision{Enabled: true, Reason: ReasonMarker}
	}

	if cfg != nil {
		if v, _ := cfg.Property(consts.PropEnabled); v == enabledValue {
			return Decision{Enabled: true, Reason: ReasonProperty}
		}
	}

	return Decision{Enabled: false, Reason: ReasonNone}
}

// Log reports the decision.
func (d Decision) Log(logger *zap.Logger) {
	if !d.Enabled {
		logger.Info("DbVcs feature is disabled")
		return
	}

	logger.Info("DbVcs feature is enabled", zap.String("reason", string(d.Reason)))
}
