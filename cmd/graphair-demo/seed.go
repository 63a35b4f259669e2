// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type person struct {
	Ref  string `db:"ref"`
	Name string `db:"name"`
	Team string `db:"team"`
}

var samplePeople = []person{
	{Name: "Alice", Team: "engineering"},
	{Name: "Bob", Team: "engineering"},
	{Name: "Carol", Team: "design"},
	{Name: "Dave", Team: "support"},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the person table and insert sample rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		_, err = store.Command("CREATE TABLE IF NOT EXISTS person (ref text, name text, team text)").ExecContext(ctx)
		if err != nil {
			return err
		}
		for _, p := range samplePeople {
			p.Ref = uuid.NewString()
			if _, err := store.InsertNode(ctx, "person", p); err != nil {
				return err
			}
		}
		cmd.Printf("seeded %d people\n", len(samplePeople))
		return nil
	},
}
