// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package graphair

import (
	"context"

	. "gopkg.in/check.v1"
)

type OutParamSuite struct{}

var _ = Suite(&OutParamSuite{})

func (s *OutParamSuite) TestValueBeforeExecution(c *C) {
	db, _ := stubDB("TestValueBeforeExecution")
	defer db.PlainDB().Close()

	e := db.Routine("totals")
	total := Out[int64](e, "total")
	_, err := total.Value()
	c.Assert(err, ErrorMatches, `graphair: cannot read output parameter "total" before execution completes`)
}

func (s *OutParamSuite) TestOutValue(c *C) {
	db, script := stubDB("TestOutValue")
	defer db.PlainDB().Close()
	script.addExecOuts(0, map[string]any{"total": int64(5)})

	e := db.Routine("totals").Param("team", "blue")
	total := Out[int64](e, "total")
	_, err := e.ExecContext(context.Background())
	c.Assert(err, IsNil)

	n, err := total.Value()
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(5))

	c.Assert(script.recordedQueries(), DeepEquals, []string{
		"EXEC totals @team = @team, @total = @total OUTPUT",
	})
}

func (s *OutParamSuite) TestOutNullNonNillable(c *C) {
	db, script := stubDB("TestOutNullNonNillable")
	defer db.PlainDB().Close()
	script.addExecOuts(0, map[string]any{"total": nil})

	e := db.Routine("totals")
	total := Out[int64](e, "total")
	_, err := e.ExecContext(context.Background())
	c.Assert(err, IsNil)

	_, err = total.Value()
	c.Assert(err, ErrorMatches, `graphair: output parameter "total" is null, cannot be read as int64`)
}

func (s *OutParamSuite) TestOutNullIntoPointer(c *C) {
	db, script := stubDB("TestOutNullIntoPointer")
	defer db.PlainDB().Close()
	script.addExecOuts(0, map[string]any{"total": nil})

	e := db.Routine("totals")
	total := Out[*int64](e, "total")
	_, err := e.ExecContext(context.Background())
	c.Assert(err, IsNil)

	p, err := total.Value()
	c.Assert(err, IsNil)
	c.Assert(p, IsNil)
}

func (s *OutParamSuite) TestOutConversionFailure(c *C) {
	db, script := stubDB("TestOutConversionFailure")
	defer db.PlainDB().Close()
	script.addExecOuts(0, map[string]any{"total": "plenty"})

	e := db.Routine("totals")
	total := Out[int64](e, "total")
	_, err := e.ExecContext(context.Background())
	c.Assert(err, IsNil)

	_, err = total.Value()
	c.Assert(err, ErrorMatches, `graphair: cannot read output parameter "total": cannot convert string to int64`)
}

func (s *OutParamSuite) TestOutIntIntoString(c *C) {
	db, script := stubDB("TestOutIntIntoString")
	defer db.PlainDB().Close()
	script.addExecOuts(0, map[string]any{"label": int64(65)})

	e := db.Routine("labels")
	label := Out[string](e, "label")
	_, err := e.ExecContext(context.Background())
	c.Assert(err, IsNil)

	_, err = label.Value()
	c.Assert(err, ErrorMatches, `graphair: cannot read output parameter "label": cannot convert int64 to string`)
}

func (s *OutParamSuite) TestOutBoolFromInt(c *C) {
	db, script := stubDB("TestOutBoolFromInt")
	defer db.PlainDB().Close()
	script.addExecOuts(0, map[string]any{"found": int64(1)})

	e := db.Routine("lookup")
	found := Out[bool](e, "found")
	_, err := e.ExecContext(context.Background())
	c.Assert(err, IsNil)

	b, err := found.Value()
	c.Assert(err, IsNil)
	c.Assert(b, Equals, true)
}

func (s *OutParamSuite) TestInOut(c *C) {
	db, script := stubDB("TestInOut")
	defer db.PlainDB().Close()
	script.addExecOuts(0, map[string]any{"cursor": int64(12)})

	e := db.Routine("advance")
	cursor := InOut[int64](e, "cursor", 7)
	_, err := e.ExecContext(context.Background())
	c.Assert(err, IsNil)

	n, err := cursor.Value()
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(12))

	c.Assert(script.recordedQueries(), DeepEquals, []string{
		"EXEC advance @cursor = @cursor OUTPUT",
	})
}

func (s *OutParamSuite) TestReturnValue(c *C) {
	db, script := stubDB("TestReturnValue")
	defer db.PlainDB().Close()
	script.addExecOuts(0, map[string]any{"return_value": int64(3)})

	e := db.Routine("prune").Param("before", "2020")
	ret := Return[int64](e)
	_, err := e.ExecContext(context.Background())
	c.Assert(err, IsNil)

	n, err := ret.Value()
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(3))

	c.Assert(script.recordedQueries(), DeepEquals, []string{
		"EXEC @return_value = prune @before = @before",
	})
}
