package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reify-io/reify/internal/ir"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect and modify the state",
}

var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List resources recorded in the state",
	Args:  cobra.NoArgs,
	RunE:  runStateList,
}

var stateShowCmd = &cobra.Command{
	Use:   "show <address>",
	Short: "Show the recorded attributes of one resource",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateShow,
}

var stateRmCmd = &cobra.Command{
	Use:   "rm <address>",
	Short: "Forget a resource without destroying it",
	Long: `Removes a resource record from the state. The real-world resource is
left untouched; reify simply stops managing it.`,
	Args: cobra.ExactArgs(1),
	RunE: runStateRm,
}

func init() {
	stateCmd.AddCommand(stateListCmd)
	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateRmCmd)
}

func runStateList(cmd *cobra.Command, args []string) error {
	dir, _, err := resolveConfig(nil)
	if err != nil {
		return err
	}

	st, err := newStore(dir).Load(cmd.Context())
	if err != nil {
		return err
	}

	for _, rec := range st.Resources {
		marker := ""
		if rec.Tainted {
			marker = " (tainted)"
		}
		fmt.Printf("%s%s\n", rec.Addr(), marker)
	}
	return nil
}

func runStateShow(cmd *cobra.Command, args []string) error {
	dir, _, err := resolveConfig(nil)
	if err != nil {
		return err
	}

	st, err := newStore(dir).Load(cmd.Context())
	if err != nil {
		return err
	}

	rec := st.Resource(args[0])
	if rec == nil {
		return fmt.Errorf("resource %s not found in state", args[0])
	}

	fmt.Printf("# %s\n", rec.Addr())
	fmt.Printf("id       = %s\n", rec.ID)
	fmt.Printf("provider = %s\n", rec.Provider)
	fmt.Printf("serial   = %d\n", rec.Serial)
	if rec.Tainted {
		fmt.Println("tainted  = true")
	}
	for key, value := range rec.Attributes {
		fmt.Printf("%s = %v\n", key, value)
	}
	return nil
}

func runStateRm(cmd *cobra.Command, args []string) error {
	dir, _, err := resolveConfig(nil)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store := newStore(dir)
	if err := store.Lock(); err != nil {
		return err
	}
	defer store.Unlock()

	prior, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if prior.Resource(args[0]) == nil {
		return fmt.Errorf("resource %s not found in state", args[0])
	}

	next := prior.DeepCopy()
	next.Serial = prior.Serial + 1
	kept := next.Resources[:0]
	for _, rec := range next.Resources {
		if rec.Addr() != args[0] {
			kept = append(kept, rec)
		}
	}
	next.Resources = kept

	if err := store.Swap(ctx, prior.Serial, next); err != nil {
		return err
	}
	fmt.Printf("Removed %s from state. The resource itself was not destroyed.\n", args[0])
	return nil
}

// mutateRecord loads state, applies fn to the named record, and publishes
// the updated snapshot.
func mutateRecord(cmd *cobra.Command, addr string, fn func(*ir.ResourceState)) error {
	dir, _, err := resolveConfig(nil)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store := newStore(dir)
	if err := store.Lock(); err != nil {
		return err
	}
	defer store.Unlock()

	prior, err := store.Load(ctx)
	if err != nil {
		return err
	}

	next := prior.DeepCopy()
	rec := next.Resource(addr)
	if rec == nil {
		return fmt.Errorf("resource %s not found in state", addr)
	}
	fn(rec)
	next.Serial = prior.Serial + 1

	return store.Swap(ctx, prior.Serial, next)
}
