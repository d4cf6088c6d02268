package main

import (
	"github.com/urfave/cli/v2"

	"github.com/panbanda/vigil/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio that exposes vigil's analysis as tools
an LLM can call.

To use with an MCP client, add to its config:
  {
    "mcpServers": {
      "vigil": {
        "command": "vigil",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze        Run the rules over paths and return the report
  - list_rules     List rules with their defaults
  - explain_rule   Describe one rule and its parameters`,
		Flags: append(commonFlags(),
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable caching",
			},
			&cli.BoolFlag{
				Name:  "manifest",
				Usage: "Print the server manifest (server.json) and exit",
			},
		),
		Action: runMCPCmd,
	}
}

func runMCPCmd(c *cli.Context) error {
	if c.Bool("manifest") {
		data, err := mcpserver.GenerateManifest(version)
		if err != nil {
			return err
		}
		_, err = c.App.Writer.Write(append(data, '\n'))
		return err
	}

	loaded, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc, err := newService(c, loaded.Config)
	if err != nil {
		return err
	}
	return mcpserver.NewServer(version, svc).Run(withLogger(c))
}
