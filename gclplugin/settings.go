package gclplugin

import "github.com/panbanda/vigil/pkg/goanalysis"

// Settings represents the configuration options for an instance of the [Plugin].
type Settings struct {
	// Config is the vigil configuration file with rule settings.
	Config *string `json:"config,omitzero"`
	// Rules restricts the run to these diagnostic IDs.
	Rules []string `json:"rules,omitzero"`
}

// Options converts [Settings] into a list of [goanalysis.Option] for the vigil analyzer.
// Settings are applied only when explicitly set.
func (s Settings) Options() []goanalysis.Option {
	var opts []goanalysis.Option

	if s.Config != nil {
		opts = append(opts, goanalysis.WithConfig(*s.Config))
	}
	if len(s.Rules) > 0 {
		opts = append(opts, goanalysis.WithRules(s.Rules...))
	}

	return opts
}
