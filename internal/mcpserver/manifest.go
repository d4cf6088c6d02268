package mcpserver

import "encoding/json"

const (
	manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"
	serverName     = "io.github.panbanda/vigil"
	image          = "ghcr.io/panbanda/vigil"
)

// Manifest is the registry entry (server.json) describing how to run the
// server.
type Manifest struct {
	Schema      string    `json:"$schema"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Version     string    `json:"version"`
	Repository  *Repo     `json:"repository,omitempty"`
	Packages    []Package `json:"packages,omitempty"`
}

type Repo struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Package is one way to launch the server. vigil ships as an OCI image
// whose entrypoint takes the subcommand as its first argument.
type Package struct {
	RegistryType string        `json:"registryType"`
	Identifier   string        `json:"identifier"`
	Arguments    []Argument    `json:"packageArguments,omitempty"`
	Environment  []EnvVariable `json:"environmentVariables,omitempty"`
	Transport    struct {
		Type string `json:"type"`
	} `json:"transport"`
}

type Argument struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

type EnvVariable struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsRequired  bool   `json:"isRequired"`
}

// GenerateManifest renders the manifest for a release. An empty version
// is a development build.
func GenerateManifest(version string) ([]byte, error) {
	if version == "" {
		version = "0.0.0"
	}
	pkg := Package{
		RegistryType: "oci",
		Identifier:   image + ":" + version,
		Arguments:    []Argument{{Type: "positional", Value: "mcp"}},
		Environment: []EnvVariable{{
			Name:        "VIGIL_CONFIG",
			Description: "Path to a vigil configuration file",
		}},
	}
	pkg.Transport.Type = "stdio"

	return json.MarshalIndent(Manifest{
		Schema:      manifestSchema,
		Name:        serverName,
		Description: "Static analysis for Go, C# and Java: nil dereferences, dead conditions, complexity and duplicated code",
		Version:     version,
		Repository:  &Repo{URL: "https://github.com/panbanda/vigil", Source: "github"},
		Packages:    []Package{pkg},
	}, "", "  ")
}
