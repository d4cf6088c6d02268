package models

// Param documents one rule parameter.
type Param struct {
	Name        string `json:"name" yaml:"name" toon:"name"`
	Default     any    `json:"default" yaml:"default" toon:"default"`
	Description string `json:"description" yaml:"description" toon:"description"`
}

// Descriptor is the static metadata of one diagnostic a rule can raise.
type Descriptor struct {
	ID              string   `json:"id" yaml:"id" toon:"id"`
	Name            string   `json:"name" yaml:"name" toon:"name"`
	Description     string   `json:"description" yaml:"description" toon:"description"`
	DefaultSeverity Severity `json:"default_severity" yaml:"default_severity" toon:"default_severity"`
	DefaultEnabled  bool     `json:"default_enabled" yaml:"default_enabled" toon:"default_enabled"`
	Params          []Param  `json:"params,omitempty" yaml:"params,omitempty" toon:"params,omitempty"`
}
