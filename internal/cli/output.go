package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var outputCmd = &cobra.Command{
	Use:   "output [name]",
	Short: "Show output values from the state",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runOutput,
}

func runOutput(cmd *cobra.Command, args []string) error {
	dir, _, err := resolveConfig(nil)
	if err != nil {
		return err
	}

	st, err := newStore(dir).Load(cmd.Context())
	if err != nil {
		return err
	}

	if len(args) == 1 {
		value, ok := st.Outputs[args[0]]
		if !ok {
			return fmt.Errorf("output %q not found in state", args[0])
		}
		fmt.Printf("%v\n", value)
		return nil
	}

	names := make([]string, 0, len(st.Outputs))
	for name := range st.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s = %v\n", name, st.Outputs[name])
	}
	return nil
}
