// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package graphair

import (
	"context"
	"database/sql/driver"

	. "gopkg.in/check.v1"
)

type CrudSuite struct{}

var _ = Suite(&CrudSuite{})

func (s *CrudSuite) newStore(testName string) (*Store, *stubScript) {
	db, script := stubDB(testName)
	return NewStore(db), script
}

func (s *CrudSuite) TestInsertNodeNilBag(c *C) {
	store, script := s.newStore("TestInsertNodeNilBag")
	defer store.Close()

	n, err := store.InsertNode(context.Background(), "person", nil)
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(0))
	// No command reached the store.
	c.Assert(script.recordedQueries(), HasLen, 0)

	n, err = store.InsertNode(context.Background(), "person", M{})
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(0))
	c.Assert(script.recordedQueries(), HasLen, 0)
}

func (s *CrudSuite) TestInsertNode(c *C) {
	store, script := s.newStore("TestInsertNode")
	defer store.Close()
	script.addExec(1)

	n, err := store.InsertNode(context.Background(), "person", M{"team": "blue", "name": "Alice"})
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(1))

	c.Assert(script.recordedQueries(), DeepEquals, []string{
		"INSERT INTO person (name, team) VALUES (@name, @team)",
	})
	name, ok := script.namedArg(0, "name")
	c.Assert(ok, Equals, true)
	c.Assert(name, Equals, "Alice")
}

func (s *CrudSuite) TestNodeExists(c *C) {
	store, script := s.newStore("TestNodeExists")
	defer store.Close()
	script.addRows([]string{"c"}, []driver.Value{int64(1)})
	script.addRows([]string{"c"}, []driver.Value{int64(0)})

	found, err := store.NodeExists(context.Background(), "person", M{"name": "Alice"})
	c.Assert(err, IsNil)
	c.Assert(found, Equals, true)

	found, err = store.NodeExists(context.Background(), "person", M{"name": "Zed"})
	c.Assert(err, IsNil)
	c.Assert(found, Equals, false)

	c.Assert(script.recordedQueries()[0], Equals,
		"SELECT COUNT(*) FROM (SELECT TOP 1 * FROM person WHERE name = @name) d")
}

func (s *CrudSuite) TestNodeExistsEmptyBag(c *C) {
	store, script := s.newStore("TestNodeExistsEmptyBag")
	defer store.Close()

	found, err := store.NodeExists(context.Background(), "person", nil)
	c.Assert(err, IsNil)
	c.Assert(found, Equals, false)
	c.Assert(script.recordedQueries(), HasLen, 0)
}

func (s *CrudSuite) TestNodeExistsNullPredicate(c *C) {
	store, script := s.newStore("TestNodeExistsNullPredicate")
	defer store.Close()
	script.addRows([]string{"c"}, []driver.Value{int64(1)})

	found, err := store.NodeExists(context.Background(), "person", M{"manager": nil})
	c.Assert(err, IsNil)
	c.Assert(found, Equals, true)

	c.Assert(script.recordedQueries()[0], Equals,
		"SELECT COUNT(*) FROM (SELECT TOP 1 * FROM person WHERE manager IS NULL) d")
	// Null predicates render as IS NULL and bind no parameter.
	_, bound := script.namedArg(0, "manager")
	c.Assert(bound, Equals, false)
}

func (s *CrudSuite) TestUpdateNode(c *C) {
	store, script := s.newStore("TestUpdateNode")
	defer store.Close()
	script.addExec(1)

	var noNote *string
	n, err := store.UpdateNode(context.Background(), "person",
		M{"team": "red", "note": noNote},
		M{"name": "Alice"})
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(1))

	// The null-valued note is skipped, not assigned.
	c.Assert(script.recordedQueries(), DeepEquals, []string{
		"UPDATE person SET team = @team WHERE name = @name",
	})
}

func (s *CrudSuite) TestUpdateNodeAllNullSet(c *C) {
	store, script := s.newStore("TestUpdateNodeAllNullSet")
	defer store.Close()

	var noNote *string
	n, err := store.UpdateNode(context.Background(), "person", M{"note": noNote}, M{"name": "Alice"})
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(0))
	c.Assert(script.recordedQueries(), HasLen, 0)
}

func (s *CrudSuite) TestDeleteNode(c *C) {
	store, script := s.newStore("TestDeleteNode")
	defer store.Close()
	script.addExec(2)

	n, err := store.DeleteNode(context.Background(), "person", M{"team": "red"})
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(2))
	c.Assert(script.recordedQueries(), DeepEquals, []string{
		"DELETE FROM person WHERE team = @team",
	})

	n, err = store.DeleteNode(context.Background(), "person", nil)
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(0))
	c.Assert(script.recordedQueries(), HasLen, 1)
}

func (s *CrudSuite) TestInsertEdgeResolvedFromBag(c *C) {
	store, script := s.newStore("TestInsertEdgeResolvedFromBag")
	defer store.Close()
	script.addExec(1)

	n, err := store.InsertEdge(context.Background(), "friend_of",
		NodeRef{Table: "person", Keys: M{"node_id": int64(42)}},
		NodeRef{Table: "person", Keys: M{"node_id": int64(7)}},
		M{"since": 2020})
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(1))

	// Identifiers present in the bags resolve without a fallback sub-query.
	c.Assert(script.recordedQueries(), DeepEquals, []string{
		"INSERT INTO friend_of ($from_id, $to_id, since) VALUES (@from_id, @to_id, @since)",
	})
	fromID, ok := script.namedArg(0, "from_id")
	c.Assert(ok, Equals, true)
	c.Assert(fromID, Equals, int64(42))
	toID, ok := script.namedArg(0, "to_id")
	c.Assert(ok, Equals, true)
	c.Assert(toID, Equals, int64(7))
}

func (s *CrudSuite) TestInsertEdgeResolvedBySubQuery(c *C) {
	store, script := s.newStore("TestInsertEdgeResolvedBySubQuery")
	defer store.Close()
	script.addRows([]string{"node_id"}, []driver.Value{int64(42)})
	script.addExec(1)

	n, err := store.InsertEdge(context.Background(), "friend_of",
		NodeRef{Table: "Person", Keys: M{"name": "Alice"}},
		NodeRef{Table: "Person", Keys: M{"node_id": int64(7)}},
		M{"since": 2020})
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(1))

	queries := script.recordedQueries()
	c.Assert(queries, HasLen, 2)
	c.Assert(queries[0], Equals, "SELECT $node_id FROM Person WHERE name = @name")
	fromID, ok := script.namedArg(1, "from_id")
	c.Assert(ok, Equals, true)
	c.Assert(fromID, Equals, int64(42))
}

func (s *CrudSuite) TestInsertEdgeUnresolvedEndpoint(c *C) {
	store, script := s.newStore("TestInsertEdgeUnresolvedEndpoint")
	defer store.Close()
	// The fallback sub-query finds no node.
	script.addRows([]string{"node_id"})

	_, err := store.InsertEdge(context.Background(), "friend_of",
		NodeRef{Table: "Person", Keys: M{"name": "Nobody"}},
		NodeRef{Table: "Person", Keys: M{"node_id": int64(7)}},
		M{"since": 2020})
	c.Assert(err, ErrorMatches, "graphair: cannot resolve Person node identifier for edge insert")
	c.Assert(script.recordedQueries(), HasLen, 1)
}

func (s *CrudSuite) TestInsertEdgeNilBag(c *C) {
	store, script := s.newStore("TestInsertEdgeNilBag")
	defer store.Close()

	n, err := store.InsertEdge(context.Background(), "friend_of",
		NodeRef{Table: "person", Keys: M{"node_id": int64(1)}},
		NodeRef{Table: "person", Keys: M{"node_id": int64(2)}},
		nil)
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(0))
	c.Assert(script.recordedQueries(), HasLen, 0)
}

func (s *CrudSuite) TestEdgeExists(c *C) {
	store, script := s.newStore("TestEdgeExists")
	defer store.Close()
	script.addRows([]string{"c"}, []driver.Value{int64(1)})

	found, err := store.EdgeExists(context.Background(), "friend_of",
		NodeRef{Table: "person", Keys: M{"node_id": int64(42)}},
		NodeRef{Table: "person", Keys: M{"node_id": int64(7)}},
		M{"since": 2020})
	c.Assert(err, IsNil)
	c.Assert(found, Equals, true)
	c.Assert(script.recordedQueries(), DeepEquals, []string{
		"SELECT COUNT(*) FROM (SELECT TOP 1 * FROM friend_of" +
			" WHERE $from_id = @from_id AND $to_id = @to_id AND since = @since) d",
	})
}

func (s *CrudSuite) TestEdgeExistsPartialEndpoints(c *C) {
	store, script := s.newStore("TestEdgeExistsPartialEndpoints")
	defer store.Close()
	script.addRows([]string{"c"}, []driver.Value{int64(0)})

	// The unresolved endpoint is omitted from the probe.
	found, err := store.EdgeExists(context.Background(), "friend_of",
		NodeRef{Table: "person", Keys: M{"node_id": int64(42)}},
		NodeRef{Table: "person"},
		nil)
	c.Assert(err, IsNil)
	c.Assert(found, Equals, false)
	c.Assert(script.recordedQueries(), DeepEquals, []string{
		"SELECT COUNT(*) FROM (SELECT TOP 1 * FROM friend_of WHERE $from_id = @from_id) d",
	})
}

func (s *CrudSuite) TestEdgeExistsNothingToProbe(c *C) {
	store, script := s.newStore("TestEdgeExistsNothingToProbe")
	defer store.Close()

	found, err := store.EdgeExists(context.Background(), "friend_of",
		NodeRef{Table: "person"}, NodeRef{Table: "person"}, nil)
	c.Assert(err, IsNil)
	c.Assert(found, Equals, false)
	c.Assert(script.recordedQueries(), HasLen, 0)
}

func (s *CrudSuite) TestUpdateEdge(c *C) {
	store, script := s.newStore("TestUpdateEdge")
	defer store.Close()
	script.addExec(1)

	n, err := store.UpdateEdge(context.Background(), "friend_of",
		NodeRef{Table: "person", Keys: M{"node_id": int64(42)}},
		NodeRef{Table: "person", Keys: M{"node_id": int64(7)}},
		M{"since": 2021}, nil)
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(1))
	c.Assert(script.recordedQueries(), DeepEquals, []string{
		"UPDATE friend_of SET since = @since WHERE $from_id = @from_id AND $to_id = @to_id",
	})
}

func (s *CrudSuite) TestUpdateEdgeUnresolvedIsNoOp(c *C) {
	store, script := s.newStore("TestUpdateEdgeUnresolvedIsNoOp")
	defer store.Close()
	// Fallback resolution for the from endpoint finds nothing.
	script.addRows([]string{"node_id"})

	n, err := store.UpdateEdge(context.Background(), "friend_of",
		NodeRef{Table: "Person", Keys: M{"name": "Nobody"}},
		NodeRef{Table: "Person", Keys: M{"node_id": int64(7)}},
		M{"since": 2021}, nil)
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(0))
	// Only the failed resolution touched the store.
	c.Assert(script.recordedQueries(), DeepEquals, []string{
		"SELECT $node_id FROM Person WHERE name = @name",
	})
}

func (s *CrudSuite) TestDeleteEdge(c *C) {
	store, script := s.newStore("TestDeleteEdge")
	defer store.Close()
	script.addExec(1)

	n, err := store.DeleteEdge(context.Background(), "friend_of",
		NodeRef{Table: "person", Keys: M{"node_id": int64(42)}},
		NodeRef{Table: "person", Keys: M{"node_id": int64(7)}},
		nil)
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(1))
	c.Assert(script.recordedQueries(), DeepEquals, []string{
		"DELETE FROM friend_of WHERE $from_id = @from_id AND $to_id = @to_id",
	})
}

func (s *CrudSuite) TestDeleteEdgeUnresolvedIsNoOp(c *C) {
	store, script := s.newStore("TestDeleteEdgeUnresolvedIsNoOp")
	defer store.Close()

	n, err := store.DeleteEdge(context.Background(), "friend_of",
		NodeRef{Table: "person"},
		NodeRef{Table: "person", Keys: M{"node_id": int64(7)}},
		nil)
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(0))
	c.Assert(script.recordedQueries(), HasLen, 0)
}

type testPerson struct {
	Name string `db:"name"`
	Team string `db:"team"`
}

func (s *CrudSuite) TestSelectNodes(c *C) {
	store, script := s.newStore("TestSelectNodes")
	defer store.Close()
	script.addRows([]string{"name", "team"},
		[]driver.Value{"Alice", "blue"},
		[]driver.Value{"Carol", "blue"})

	people, err := SelectNodes[testPerson](context.Background(), store, "person", M{"team": "blue"})
	c.Assert(err, IsNil)
	c.Assert(people, DeepEquals, []testPerson{
		{Name: "Alice", Team: "blue"},
		{Name: "Carol", Team: "blue"},
	})
	c.Assert(script.recordedQueries(), DeepEquals, []string{
		"SELECT * FROM person WHERE team = @team",
	})

	people, err = SelectNodes[testPerson](context.Background(), store, "person", nil)
	c.Assert(err, IsNil)
	c.Assert(people, IsNil)
}

func (s *CrudSuite) TestSelectConnected(c *C) {
	store, script := s.newStore("TestSelectConnected")
	defer store.Close()
	script.addRows([]string{"name", "team"}, []driver.Value{"Bob", "red"})

	people, err := SelectConnected[testPerson](context.Background(), store,
		"person", "friend_of", "person", M{"name": "Alice"})
	c.Assert(err, IsNil)
	c.Assert(people, DeepEquals, []testPerson{{Name: "Bob", Team: "red"}})
	c.Assert(script.recordedQueries(), DeepEquals, []string{
		"SELECT person.* FROM person, friend_of, person" +
			" WHERE MATCH(person-(friend_of)->person) AND person.name = @name",
	})
}
