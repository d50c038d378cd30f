package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs the root Cobra command for the basin client.
func NewRoot(addr AddrFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "basin",
		Short: "Basin client commands",
	}
	root.AddCommand(NewStreamCommand(addr))
	return root
}
