package client

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const dialTimeout = 5 * time.Second

// NewStreamCommand constructs the `stream` command group and subcommands.
func NewStreamCommand(addr AddrFunc) *cobra.Command {
	streamCmd := &cobra.Command{Use: "stream", Short: "Stream operations"}

	streamCmd.AddCommand(
		newStreamAddCommand(addr),
		newStreamLenCommand(addr),
		newStreamRangeCommand(addr),
		newStreamDelCommand(addr),
	)
	return streamCmd
}

func newStreamAddCommand(addr AddrFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <stream> <field> <value> [field value ...]",
		Short: "Append an entry to a stream",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args)-1)%2 != 0 {
				return fmt.Errorf("fields must come in field/value pairs")
			}
			id, _ := cmd.Flags().GetString("id")

			c, err := dial(addr(), dialTimeout)
			if err != nil {
				return err
			}
			defer c.close()

			cmdArgs := append([]string{"XADD", args[0], id}, args[1:]...)
			r, err := c.do(cmdArgs...)
			if err != nil {
				return err
			}
			if err := r.err(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), r.str)
			return nil
		},
	}
	cmd.Flags().String("id", "*", "Entry id (\"*\" auto-assigns, \"<ms>-*\" auto-assigns the sequence)")
	return cmd
}

func newStreamLenCommand(addr AddrFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "len <stream>",
		Short: "Print the number of entries in a stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(addr(), dialTimeout)
			if err != nil {
				return err
			}
			defer c.close()

			r, err := c.do("XLEN", args[0])
			if err != nil {
				return err
			}
			if err := r.err(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), r.n)
			return nil
		},
	}
}

func newStreamRangeCommand(addr AddrFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "range <stream>",
		Short: "Print entries in id order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, _ := cmd.Flags().GetString("start")
			end, _ := cmd.Flags().GetString("end")
			count, _ := cmd.Flags().GetInt("count")
			reverse, _ := cmd.Flags().GetBool("reverse")

			c, err := dial(addr(), dialTimeout)
			if err != nil {
				return err
			}
			defer c.close()

			name := "XRANGE"
			first, second := start, end
			if reverse {
				name = "XREVRANGE"
				first, second = end, start
			}
			cmdArgs := []string{name, args[0], first, second}
			if count > 0 {
				cmdArgs = append(cmdArgs, "COUNT", fmt.Sprintf("%d", count))
			}
			r, err := c.do(cmdArgs...)
			if err != nil {
				return err
			}
			if err := r.err(); err != nil {
				return err
			}
			for _, item := range r.items {
				if item.kind != '*' || len(item.items) != 2 {
					continue
				}
				out := item.items[0].str
				for _, f := range item.items[1].items {
					out += " " + f.str
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			return nil
		},
	}
	cmd.Flags().String("start", "-", "Range start id (\"-\" for the minimum)")
	cmd.Flags().String("end", "+", "Range end id (\"+\" for the maximum)")
	cmd.Flags().Int("count", 0, "Maximum entries to return (0 = unlimited)")
	cmd.Flags().Bool("reverse", false, "Return entries in descending id order")
	return cmd
}

func newStreamDelCommand(addr AddrFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "del <stream> <id> [id ...]",
		Short: "Delete entries by id",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(addr(), dialTimeout)
			if err != nil {
				return err
			}
			defer c.close()

			r, err := c.do(append([]string{"XDEL"}, args...)...)
			if err != nil {
				return err
			}
			if err := r.err(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), r.n)
			return nil
		},
	}
}
