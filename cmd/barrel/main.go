// Command barrel is the CLI front end for the barrel key/value store
// (SPEC_FULL.md §6). It is an external collaborator layered on top of
// pkg/barrel: it never reaches into engine/segment/keydir internals
// directly.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mistlake/barrel/pkg/barrel"
	pkgerrors "github.com/mistlake/barrel/pkg/errors"
)

// version is the module version the --version flag reports.
const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// describeError renders err with whatever structured context its concrete
// pkg/errors type carries, falling back to its error code and detail map
// for anything else. Commands wrap barrel errors through this so a user
// sees which field, path, or key was involved instead of a bare error
// string; the one exception is rm's index error for a missing key, which
// prints "Key not found" and is returned as is.
func describeError(err error) string {
	if pkgerrors.IsValidationError(err) {
		ve, _ := pkgerrors.AsValidationError(err)
		return fmt.Sprintf("invalid %s (rule %q, provided %v, expected %v): %v",
			ve.Field(), ve.Rule(), ve.Provided(), ve.Expected(), err)
	}
	if pkgerrors.IsStorageError(err) {
		se, _ := pkgerrors.AsStorageError(err)
		return fmt.Sprintf("storage error (%s) at %s: %v", se.Code(), se.Path(), err)
	}
	if ie, ok := pkgerrors.AsIndexError(err); ok {
		return fmt.Sprintf("index error (%s) during %s for key %q: %v",
			ie.Code(), ie.Operation(), ie.Key(), err)
	}
	return fmt.Sprintf("%s: %v (%v)", pkgerrors.GetErrorCode(err), err, pkgerrors.GetErrorDetails(err))
}

func newRootCmd() *cobra.Command {
	var dataDir string

	root := &cobra.Command{
		Use:     "barrel",
		Short:   "barrel is an embeddable, log-structured key/value store",
		Version: version,
	}

	root.PersistentFlags().StringVar(&dataDir, "data-dir", "./barrel-data", "directory the store keeps its segments in")

	root.AddCommand(newGetCmd(&dataDir))
	root.AddCommand(newSetCmd(&dataDir))
	root.AddCommand(newRmCmd(&dataDir))

	return root
}

func newGetCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "print the value stored for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := barrel.Open(*dataDir)
			if err != nil {
				return fmt.Errorf("open store: %s", describeError(err))
			}
			defer db.Close()

			val, ok, err := db.Get(args[0])
			if err != nil {
				return fmt.Errorf("get key: %s", describeError(err))
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "key not found")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), val)
			return nil
		},
	}
}

func newSetCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "store a value under a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := barrel.Open(*dataDir)
			if err != nil {
				return fmt.Errorf("open store: %s", describeError(err))
			}
			defer db.Close()

			if err := db.Set(args[0], args[1]); err != nil {
				return fmt.Errorf("set key: %s", describeError(err))
			}
			return nil
		},
	}
}

func newRmCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <key>",
		Short: "remove a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := barrel.Open(*dataDir)
			if err != nil {
				return fmt.Errorf("open store: %s", describeError(err))
			}
			defer db.Close()

			if err := db.Remove(args[0]); err != nil {
				if pkgerrors.IsIndexError(err) {
					fmt.Fprintln(cmd.OutOrStdout(), "Key not found")
					return err
				}
				return fmt.Errorf("remove key: %s", describeError(err))
			}
			return nil
		},
	}
}
