package service

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestStaticAttestations(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	att := NewStaticAttestations(
		[]string{"0xAbCd000000000000000000000000000000000001"},
		[]string{"P1", "P2", "P3"},
	)

	// voter matching ignores address case
	ok, err := att.ApprovedVoter(ctx, "0xabcd000000000000000000000000000000000001")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	ok, err = att.ApprovedVoter(ctx, "0x0000000000000000000000000000000000000002")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)

	count, err := att.CountApprovedProjects(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, 3)

	ids, err := att.ApprovedProjectIDs(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(ids, qt.DeepEquals, []string{"P1", "P2", "P3"})

	// the returned slice is a copy, mutating it does not leak back
	ids[0] = "mutated"
	again, err := att.ApprovedProjectIDs(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(again[0], qt.Equals, "P1")
}
