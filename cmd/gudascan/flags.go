package main

import "github.com/urfave/cli/v3"

var (
	platformName  string
	deviceName    string
	groupSize     int64
	numGroups     int64
	lockstepWidth int64
	configFile    string
	logLevel      string
	logFormat     string
	debug         bool
)

func deviceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "platform",
			Aliases:     []string{"p"},
			Usage:       "select the first device whose vendor contains this string",
			Destination: &platformName,
		},
		&cli.StringFlag{
			Name:        "device",
			Aliases:     []string{"d"},
			Usage:       "select the first device whose name contains this string",
			Destination: &deviceName,
		},
		&cli.Int64Flag{
			Name:        "group-size",
			Usage:       "work-items per group",
			Value:       256,
			Destination: &groupSize,
		},
		&cli.Int64Flag{
			Name:        "num-groups",
			Usage:       "number of groups",
			Value:       128,
			Destination: &numGroups,
		},
		&cli.Int64Flag{
			Name:        "lockstep-width",
			Usage:       "wave width (0 derives it from the device)",
			Destination: &lockstepWidth,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to the YAML config file",
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "warn",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging and print stack traces of backend failures",
			Destination: &debug,
		},
	}
}
