package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/sunyakun/foo-controller/pkg/admission"
	"github.com/sunyakun/foo-controller/pkg/apis"
	"github.com/sunyakun/foo-controller/pkg/errors"
	"github.com/sunyakun/foo-controller/pkg/rest"
	"github.com/sunyakun/foo-controller/pkg/util"
)

const (
	outputYAML  = "yaml"
	outputJSON  = "json"
	outputTable = "table"
)

func newFooCommand(opts *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "foo",
		Short: "Manage the Foos of a foo-controller serving the Foo API",
	}
	cmd.PersistentFlags().StringVarP(&output, "output", "o", outputYAML, "output format: yaml, json or table")

	client := func() (*rest.HTTPRestClient[apis.Foo, *apis.Foo], error) {
		if opts.config.APIServer == "" {
			return nil, fmt.Errorf("--api-server is required")
		}
		return rest.NewHTTPRestClient[apis.Foo, *apis.Foo](apis.FooResource, opts.config.APIServer, nil), nil
	}

	get := &cobra.Command{
		Use:   "get [NAMESPACE/]NAME",
		Short: "Print a Foo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			foo, err := c.Get(cmd.Context(), fooKey(args[0]))
			if err != nil {
				return err
			}
			return printFoos(cmd.OutOrStdout(), output, foo)
		},
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List the Foos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			foos, _, err := c.GetList(cmd.Context(), apis.ListOptions{Limit: limit})
			if err != nil {
				return err
			}
			if opts.config.Namespace != "" {
				foos = lo.Filter(foos, func(foo *apis.Foo, _ int) bool { return foo.Namespace == opts.config.Namespace })
			}
			return printFoos(cmd.OutOrStdout(), output, foos...)
		},
	}
	list.Flags().IntVar(&limit, "limit", 100, "maximum number of Foos to list")

	var file string
	apply := &cobra.Command{
		Use:   "apply -f FILE",
		Short: "Create a Foo or update its spec from a yaml or json file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			foo, err := readFoo(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			current, err := c.Get(cmd.Context(), foo.GetKey())
			switch {
			case errors.IsNotFoundError(err):
				created, err := c.Create(cmd.Context(), foo)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "foo %s created\n", created.GetKey())
				return nil
			case err != nil:
				return err
			}
			current.Spec = foo.Spec
			if err := c.Update(cmd.Context(), current.GetKey(), current); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "foo %s configured\n", current.GetKey())
			return nil
		},
	}
	apply.Flags().StringVarP(&file, "filename", "f", "", "the file holding the Foo, - reads stdin")
	util.Must(apply.MarkFlagRequired("filename"))

	del := &cobra.Command{
		Use:   "delete [NAMESPACE/]NAME",
		Short: "Delete a Foo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			key := fooKey(args[0])
			if err := c.Delete(cmd.Context(), key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "foo %s deleted\n", key)
			return nil
		},
	}

	cmd.AddCommand(get, list, apply, del)
	return cmd
}

// readFoo decodes the Foo of path, yaml or json.
func readFoo(path string, stdin io.Reader) (*apis.Foo, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	var foo apis.Foo
	if err := yaml.Unmarshal(data, &foo); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if foo.Name == "" {
		return nil, fmt.Errorf("%s: metadata.name is required", path)
	}
	if foo.Namespace == "" {
		foo.Namespace = admission.DefaultNamespace
	}
	return &foo, nil
}

// fooKey accepts NAME or NAMESPACE/NAME.
func fooKey(arg string) string {
	nn := apis.ParseKey(arg)
	if nn.Namespace == "" {
		nn.Namespace = admission.DefaultNamespace
	}
	return nn.String()
}

func printFoos(w io.Writer, output string, foos ...*apis.Foo) error {
	var v any = foos
	if len(foos) == 1 {
		v = foos[0]
	}
	switch output {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case outputTable:
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"NAMESPACE", "NAME", "INFO", "IS_BAD"})
		for _, foo := range foos {
			t.AppendRow(table.Row{foo.Namespace, foo.Name, foo.Spec.Info, foo.Status.IsBad})
		}
		t.Render()
		return nil
	}
	return fmt.Errorf("unknown output format %q", output)
}
