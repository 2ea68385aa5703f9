package app

import (
	"encoding/json"
	"fmt"

	"github.com/imroc/req/v3"
	"github.com/spf13/cobra"

	"github.com/sunyakun/foo-controller/pkg/state"
)

func newStateCommand(opts *options) *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the state of a running controller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var snap state.Snapshot
			resp, err := req.C().R().SetContext(cmd.Context()).SetSuccessResult(&snap).Get(address)
			if err != nil {
				return err
			}
			if resp.IsErrorState() {
				return fmt.Errorf("get state: %s", resp.Status)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
	cmd.Flags().StringVar(&address, "address", "http://127.0.0.1:8080/", "url of the controller state")
	return cmd
}
