package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/genesis/internal/ir"
)

// TraceSnapshot is the golden form of a scenario run. It holds no hashes or
// run ids, only formatted terms, so it reads as a rewrite derivation.
type TraceSnapshot struct {
	ScenarioName string
	Status       string
	Iterations   int
	Trace        []TraceEvent
	Final        map[string]string
}

// toCanonicalMap converts the snapshot to IR for canonical serialization.
func (s *TraceSnapshot) toCanonicalMap() ir.IRObject {
	trace := make(ir.IRArray, len(s.Trace))
	for i, ev := range s.Trace {
		changes := make(ir.IRArray, len(ev.Changes))
		for j, c := range ev.Changes {
			obj := ir.IRObject{
				"kind": ir.IRString(c.Kind),
				"node": ir.IRString(c.Node),
			}
			if c.Before != "" {
				obj["before"] = ir.IRString(c.Before)
			}
			if c.After != "" {
				obj["after"] = ir.IRString(c.After)
			}
			changes[j] = obj
		}
		trace[i] = ir.IRObject{
			"seq":              ir.IRInt(ev.Seq),
			"iteration":        ir.IRInt(ev.Iteration),
			"rewrites_applied": ir.IRInt(ev.RewritesApplied),
			"changes":          changes,
		}
	}

	final := make(ir.IRObject, len(s.Final))
	for name, data := range s.Final {
		final[name] = ir.IRString(data)
	}

	return ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"status":        ir.IRString(s.Status),
		"iterations":    ir.IRInt(s.Iterations),
		"trace":         trace,
		"final":         final,
	}
}

// RunWithGolden runs a scenario and compares its trace with
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Status:       string(result.State.Status),
		Iterations:   result.State.Iteration,
		Trace:        result.Trace,
		Final:        result.Final,
	}
	traceJSON, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
