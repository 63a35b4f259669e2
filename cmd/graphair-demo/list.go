// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package main

import (
	"github.com/spf13/cobra"

	"github.com/canonical/graphair"
)

var listTeam string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List seeded people, optionally filtered by team",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		var people []person
		if listTeam != "" {
			people, err = graphair.SelectNodes[person](ctx, store, "person", graphair.M{"team": listTeam})
		} else {
			people, err = graphair.Select[person](ctx, store.Command("SELECT * FROM person"))
		}
		if err != nil {
			return err
		}
		for _, p := range people {
			cmd.Printf("%s\t%s\t%s\n", p.Ref, p.Name, p.Team)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listTeam, "team", "", "only list members of this team")
}
