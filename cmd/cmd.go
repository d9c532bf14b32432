// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

const defaultConfigPath = "config.toml"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file (TOML, or YAML by extension)",
		Value:   defaultConfigPath,
	}
}

// serveCommand runs the HTTP server and browser frontend.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the API and browser frontend",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (host:port), overrides the config",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the frontend in a browser once listening",
			},
		},
		Action: r.Serve,
	}
}

// randomCommand samples popular tracks from a random era.
func randomCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "random",
		Aliases: []string{"hits"},
		Usage:   "Pick 5 random popular songs from a random era",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, markdown, csv or json",
				Value:   formatText,
			},
		},
		Action: r.Random,
	}
}

// searchCommand looks up an artist by name.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search an artist; an exact name match prints its top tracks",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "artist",
			},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Search,
	}
}

// topCommand prints an artist's top tracks.
func topCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "top",
		Usage: "Show the top 5 tracks of an artist by catalog id",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "artist-id",
			},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Top,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive terminal UI",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "File the TUI writes its logs to",
				Value: "./tmp/tophits-tui.log",
			},
		},
		Action: r.TUI,
	}
}

// configCommand manages the configuration file.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write the example configuration file",
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration with secrets masked",
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigShow,
			},
		},
	}
}
