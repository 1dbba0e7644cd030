package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emrgen/refgraph"
	"github.com/emrgen/refgraph/internal/config"
)

func newEngine() *refgraph.Engine {
	cnf := config.LoadConfig()
	return refgraph.New(config.GetDb(cnf), refgraph.Config{Origin: cnf.Origin})
}

func depsCommand() *cobra.Command {
	var reference string
	var exact bool

	command := &cobra.Command{
		Use:   "deps",
		Short: "list documents referencing a URI",
		Run: func(cmd *cobra.Command, args []string) {
			if reference == "" && exact {
				fmt.Println("missing: --reference")
				return
			}

			engine := newEngine()
			ids, err := engine.GetDependents(context.Background(), reference, exact)
			if err != nil {
				fmt.Println("error listing dependents: ", err)
				return
			}

			for _, id := range ids {
				fmt.Println(id.String())
			}
		},
	}

	command.Flags().StringVarP(&reference, "reference", "r", "", "reference URI or prefix")
	command.Flags().BoolVarP(&exact, "exact", "e", false, "match the URI exactly instead of by prefix")

	return command
}

func reindexCommand() *cobra.Command {
	var reference string

	command := &cobra.Command{
		Use:   "reindex",
		Short: "reindex all documents referencing a URI",
		Run: func(cmd *cobra.Command, args []string) {
			if reference == "" {
				fmt.Println("missing: --reference")
				return
			}

			engine := newEngine()
			if err := engine.ReindexDependents(context.Background(), reference, nil); err != nil {
				fmt.Println("error reindexing dependents: ", err)
			}
		},
	}

	command.Flags().StringVarP(&reference, "reference", "r", "", "reference URI or prefix")

	return command
}
