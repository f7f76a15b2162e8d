// Package dlproof is the command line front end of the discrete logarithm
// proof of knowledge: key generation, proving, verification and the
// interactive demonstration.
package dlproof

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"

	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/drand/dlproof/common"
	"github.com/drand/dlproof/common/log"
	"github.com/drand/dlproof/crypto"
	"github.com/drand/dlproof/entropy"
	"github.com/drand/dlproof/internal/metrics"
	"github.com/drand/dlproof/proof"
)

// Automatically set through -ldflags
// Example: go install -ldflags "-X github.com/drand/dlproof/internal/dlproof-cli.buildDate=$(date -u +%d/%m/%Y@%H:%M:%S) -X github.com/drand/dlproof/internal/dlproof-cli.gitCommit=$(git rev-parse HEAD)" ./cmd/dlproof
var (
	gitCommit = "none"
	buildDate = "unknown"
)

var SetVersionPrinter sync.Once

func banner(w io.Writer) {
	version := common.GetAppVersion()
	_, _ = fmt.Fprintf(w, "dlproof %s (date %v, commit %v)\n", version.String(), buildDate, gitCommit)
}

var verboseFlag = &cli.BoolFlag{
	Name:    "verbose",
	Usage:   "If set, verbosity is at the debug level",
	EnvVars: []string{"DLPROOF_VERBOSE"},
}

var logLevelFlag = &cli.StringFlag{
	Name:    "log-level",
	Usage:   "Minimum level of the logs: debug, info, warn or error. --verbose forces debug.",
	Value:   "info",
	EnvVars: []string{"DLPROOF_LOG_LEVEL"},
}

var jsonFlag = &cli.BoolFlag{
	Name:    "json",
	Usage:   "Write logs as JSON instead of the console format.",
	EnvVars: []string{"DLPROOF_JSON"},
}

var groupFlag = &cli.StringFlag{
	Name:    "group",
	Usage:   "Name of the registered group to work in. See 'dlproof group list'.",
	Value:   crypto.DefaultGroupID,
	EnvVars: []string{crypto.GroupEnvVar},
}

var groupFileFlag = &cli.StringFlag{
	Name:    "group-file",
	Usage:   "TOML file holding custom group parameters (Name, Modulus, Generator). Takes precedence over --group.",
	EnvVars: []string{"DLPROOF_GROUP_FILE"},
}

var sourceFlag = &cli.StringFlag{
	Name: "source",
	Usage: "Executable whose output is mixed with crypto/rand as additional entropy " +
		"for secrets, nonces and challenges.",
	EnvVars: []string{"DLPROOF_SOURCE"},
}

var metricsFlag = &cli.BoolFlag{
	Name:    "metrics",
	Usage:   "Print the collected metrics in the prometheus text format once the command is done.",
	EnvVars: []string{"DLPROOF_METRICS"},
}

var secretFlag = &cli.StringFlag{
	Name:     "secret",
	Usage:    "Secret to prove knowledge of, decimal or 0x-prefixed hexadecimal, in [1, p-1].",
	Required: true,
}

var outFlag = &cli.StringFlag{
	Name:  "out",
	Usage: "save the proof into a separate file instead of stdout",
}

var jsonOutFlag = &cli.BoolFlag{
	Name:  "json-out",
	Usage: "Encode the proof as JSON instead of TOML.",
}

var publicFlag = &cli.StringFlag{
	Name:  "public",
	Usage: "Public value the proof must be about, decimal or 0x-prefixed hexadecimal. Defaults to the one in the proof file.",
}

var proofFlag = &cli.StringFlag{
	Name:     "proof",
	Usage:    "Proof file, as written by 'dlproof prove'.",
	Required: true,
}

var dbFlag = &cli.StringFlag{
	Name:    "db",
	Usage:   "Folder of the replay database. When set, a proof is only accepted the first time it is presented.",
	EnvVars: []string{"DLPROOF_DB"},
}

var appCommands = []*cli.Command{
	{
		Name:  "group",
		Usage: "Inspect the groups proofs can be computed in.",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the registered groups.",
				Action: func(c *cli.Context) error {
					return groupListCmd(c)
				},
			},
			{
				Name:  "show",
				Usage: "Show the parameters of the selected group, its fingerprint and the order of its generator.",
				Flags: toArray(outFlag),
				Action: func(c *cli.Context) error {
					return withEnv(c, groupShowCmd)
				},
			},
		},
	},
	{
		Name:  "keygen",
		Usage: "Generate a fresh key pair and print it. The secret is not stored anywhere.",
		Action: func(c *cli.Context) error {
			return withEnv(c, keygenCmd)
		},
	},
	{
		Name:  "prove",
		Usage: "Prove knowledge of the given secret.",
		Flags: toArray(secretFlag, outFlag, jsonOutFlag),
		Action: func(c *cli.Context) error {
			return withEnv(c, proveCmd)
		},
	},
	{
		Name:  "verify",
		Usage: "Verify a proof file.",
		Flags: toArray(publicFlag, proofFlag, dbFlag),
		Action: func(c *cli.Context) error {
			return withEnv(c, verifyCmd)
		},
	},
	{
		Name:  "demo",
		Usage: "Read a secret from stdin, prove knowledge of it and verify the proof.",
		Action: func(c *cli.Context) error {
			banner(c.App.ErrWriter)
			return withEnv(c, demoCmd)
		},
	},
}

// CLI returns the dlproof app
func CLI() *cli.App {
	version := common.GetAppVersion()

	app := cli.NewApp()
	app.Name = "dlproof"

	SetVersionPrinter.Do(func() {
		cli.VersionPrinter = func(c *cli.Context) {
			fmt.Fprintf(c.App.Writer, "dlproof %s (date %v, commit %v)\n", version, buildDate, gitCommit)
		}
	})

	app.ExitErrHandler = func(context *cli.Context, err error) {
		// override to prevent default behavior of calling OS.exit(1),
		// when tests expect to be able to run multiple commands.
	}
	app.Version = version.String()
	app.Usage = "zero-knowledge proof of knowledge of a discrete logarithm"
	// we need to copy the underlying commands to avoid races, cli sadly doesn't support concurrent executions well
	appComm := make([]*cli.Command, len(appCommands))
	for i, p := range appCommands {
		v := *p
		appComm[i] = &v
	}
	app.Commands = appComm
	// we need to copy the underlying flags to avoid races
	verbFlag := *verboseFlag
	lvlFlag := *logLevelFlag
	jFlag := *jsonFlag
	grpFlag := *groupFlag
	grpFileFlag := *groupFileFlag
	srcFlag := *sourceFlag
	metFlag := *metricsFlag
	app.Flags = toArray(&verbFlag, &lvlFlag, &jFlag, &grpFlag, &grpFileFlag, &srcFlag, &metFlag)
	return app
}

// env holds what a command needs, built from the global flags.
type env struct {
	group   *crypto.Group
	engine  *proof.Engine
	src     *entropy.Source
	log     log.Logger
	metrics *metrics.Recorder
}

func withEnv(c *cli.Context, cmd func(*cli.Context, *env) error) error {
	e, err := contextToEnv(c)
	if err != nil {
		return err
	}
	if err := cmd(c, e); err != nil {
		return err
	}
	if c.Bool(metricsFlag.Name) {
		if err := e.metrics.WriteText(c.App.Writer); err != nil {
			return xerrors.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}

func contextToEnv(c *cli.Context) (*env, error) {
	level, err := log.ParseLevel(c.String(logLevelFlag.Name))
	if err != nil {
		return nil, err
	}
	if c.Bool(verboseFlag.Name) {
		level = log.DebugLevel
	}
	log.ConfigureDefaultLogger(nil, level, c.Bool(jsonFlag.Name))
	l := log.DefaultLogger()

	grp, err := selectGroup(c)
	if err != nil {
		return nil, err
	}

	src := entropy.NewSource()
	if path := c.String(sourceFlag.Name); path != "" {
		script := entropy.NewScriptReader(path)
		l.Infow("mixing user entropy", "source", script.GetPath())
		src = entropy.NewSource(rand.Reader, script)
	}

	rec := metrics.NewRecorder(nil)
	engine, err := proof.NewEngine(grp,
		proof.WithLogger(l),
		proof.WithSource(src),
		proof.WithMetrics(rec))
	if err != nil {
		return nil, err
	}
	return &env{
		group:   grp,
		engine:  engine,
		src:     src,
		log:     l,
		metrics: rec,
	}, nil
}

func selectGroup(c *cli.Context) (*crypto.Group, error) {
	if path := c.String(groupFileFlag.Name); path != "" {
		grp, err := crypto.LoadGroupFile(path)
		if err != nil {
			return nil, xerrors.Errorf("loading group file: %w", err)
		}
		return grp, nil
	}
	grp, err := crypto.GetGroupByIDWithDefault(c.String(groupFlag.Name))
	if err != nil {
		return nil, xerrors.Errorf("selecting group: %w", err)
	}
	return grp, nil
}

func toArray(flags ...cli.Flag) []cli.Flag {
	return flags
}
