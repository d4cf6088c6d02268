package main

import (
	"fmt"
	"slices"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/vigil/internal/output"
	"github.com/panbanda/vigil/internal/service/analysis"
	"github.com/panbanda/vigil/pkg/models"
)

func rulesCmd() *cli.Command {
	return &cli.Command{
		Name:      "rules",
		Usage:     "List the rules, or explain one",
		ArgsUsage: "[rule-id]",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Output format: text, json, markdown, toon, yaml",
			},
		),
		Action: runRulesCmd,
	}
}

func runRulesCmd(c *cli.Context) error {
	format, err := output.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}
	loaded, err := loadConfig(c)
	if err != nil {
		return err
	}
	formatter := output.NewWriterFormatter(format, c.App.Writer, loaded.Config.Output.Color && !color.NoColor)
	descs := analysis.New(analysis.WithConfig(loaded.Config)).Descriptors()

	if c.Args().Len() == 0 {
		return formatter.Output(output.RulesView{Descriptors: descs})
	}

	id := c.Args().First()
	i := slices.IndexFunc(descs, func(d models.Descriptor) bool { return d.ID == id })
	if i < 0 {
		return fmt.Errorf("unknown rule %q", id)
	}
	return formatter.Output(output.Explain(descs[i]))
}
