// Package app holds the foo-controller commands.
package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/bombsimon/logrusr/v4"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/sunyakun/foo-controller/pkg/config"
	"github.com/sunyakun/foo-controller/pkg/controller"
)

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	// ExitCodePrerequisiteMissing is returned when the Foo resource is not
	// served by the backend.
	ExitCodePrerequisiteMissing = 2
)

type options struct {
	configPath string
	config     config.Config
}

// NewRootCommand returns the foo-controller command and its subcommands.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{config: config.Default()})
}

func newRootCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "foo-controller",
		Short: "Reconcile the status of Foo resources",
		Long: `foo-controller watches Foo resources and keeps status.is_bad in line
with spec.info. Foos are read from Kubernetes, MySQL, memory or another
foo-controller serving the resource API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.complete(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path of the yaml configuration file")
	flags.StringVar(&opts.config.Backend, "backend", opts.config.Backend, "where Foos live: kubernetes, mysql, memory or http")
	flags.StringVar(&opts.config.Kubeconfig, "kubeconfig", "", "path of the kubeconfig, the in-cluster or default config when empty")
	flags.StringVarP(&opts.config.Namespace, "namespace", "n", "", "only reconcile the Foos of this namespace")
	flags.StringVar(&opts.config.MySQL.DSN, "mysql-dsn", "", "data source name of the mysql backend")
	flags.StringVar(&opts.config.APIServer, "api-server", "", "base url of a foo-controller serving the Foo API")
	flags.StringVar(&opts.config.Listen, "listen", opts.config.Listen, "address of the state, metrics and Foo API server")
	flags.IntVar(&opts.config.Workers, "workers", opts.config.Workers, "number of Foos reconciled concurrently")
	flags.StringVar(&opts.config.Log.Level, "log-level", opts.config.Log.Level, "log level")
	flags.StringVar(&opts.config.Log.Format, "log-format", opts.config.Log.Format, "log format: text or json")

	cmd.AddCommand(newRunCommand(opts), newMigrateCommand(opts), newFooCommand(opts), newStateCommand(opts))
	return cmd
}

// complete loads the configuration file, the flags set on the command line
// win over it.
func (o *options) complete(cmd *cobra.Command) error {
	if o.configPath == "" {
		return nil
	}
	loaded, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	override := func(name string, dst *string, value string) {
		if flags.Changed(name) {
			*dst = value
		}
	}
	override("backend", &loaded.Backend, o.config.Backend)
	override("kubeconfig", &loaded.Kubeconfig, o.config.Kubeconfig)
	override("namespace", &loaded.Namespace, o.config.Namespace)
	override("mysql-dsn", &loaded.MySQL.DSN, o.config.MySQL.DSN)
	override("api-server", &loaded.APIServer, o.config.APIServer)
	override("listen", &loaded.Listen, o.config.Listen)
	override("log-level", &loaded.Log.Level, o.config.Log.Level)
	override("log-format", &loaded.Log.Format, o.config.Log.Format)
	if flags.Changed("workers") {
		loaded.Workers = o.config.Workers
	}
	if flags.Changed("resync-interval") {
		loaded.ResyncInterval = o.config.ResyncInterval
	}
	if flags.Changed("retry-interval") {
		loaded.RetryInterval = o.config.RetryInterval
	}
	o.config = loaded
	return nil
}

func (o *options) logger() (logr.Logger, error) {
	l, err := o.config.Log.NewLogger()
	if err != nil {
		return logr.Logger{}, err
	}
	return logrusr.New(l), nil
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitCodeSuccess
	case errors.Is(err, controller.ErrPrerequisiteMissing):
		return ExitCodePrerequisiteMissing
	default:
		return ExitCodeError
	}
}

// Execute runs the root command and returns the exit code of the process.
func Execute() int {
	err := NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return exitCode(err)
}
