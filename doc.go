/*
Package graphair is a typed data-access layer for graph-capable relational
stores. It executes parameterized commands, maps tabular results into Go
structs, and synthesizes CRUD text for graph node and edge tables.

The package does not parse or plan queries and performs no identifier
sanitization: table and column names flow into generated text as given.

# Executing commands

An [Executor] runs exactly one command. It is built from a [DB] or a [TX],
gathers parameters fluently, and produces results in one of several shapes:

	db := graphair.NewDB(sqldb)
	n, err := db.Command("DELETE FROM person WHERE age < @age").
		Param("age", 18).
		ExecContext(ctx)

Results can be consumed through a callback over the raw cursor, as a scalar,
or as a lazy sequence of mapped records:

	type Person struct {
		Name string `db:"name"`
		Age  int    `db:"age"`
	}

	iter := graphair.SelectIter[Person](ctx, db.Command("SELECT * FROM person"))
	for iter.Next() {
		p := iter.Value()
		// ...
	}
	err := iter.Close()

An executor created from a DB checks out a dedicated connection for the
execution and releases it afterwards; one created from a transaction uses the
transaction's connection and closes nothing.

# Mapping results

Result columns are matched to the exported settable fields of the record
type: a "db" tag matches its column exactly, and otherwise names compare
equal ignoring case and separator characters, so column height_cm matches
field HeightCm. Columns with no match are dropped. The computed bindings are
cached per (type, column sequence) pair and shared across executions.

# Graph CRUD

[Store] is a facade over node and edge tables. The system columns node_id,
edge_id, from_id and to_id are referenced with the engine's $ sigil in
generated text, and edges are addressed by [NodeRef] endpoints whose
identifiers are resolved from the key bag or, failing that, by a scalar
sub-query:

	store := graphair.NewStore(db)
	_, err := store.InsertEdge(ctx, "friend_of",
		graphair.NodeRef{Table: "person", Keys: graphair.M{"name": "Alice"}},
		graphair.NodeRef{Table: "person", Keys: graphair.M{"name": "Bob"}},
		graphair.M{"since": 2020})

Store methods given a nil or empty parameter bag are no-ops: they return
zero rows, false or nil without touching the store.
*/
package graphair
