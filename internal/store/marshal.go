package store

import (
	"fmt"
	"time"

	"github.com/roach88/genesis/internal/graph"
	"github.com/roach88/genesis/internal/ir"
	"github.com/roach88/genesis/internal/runtime"
)

// canonicalText converts an IR value to canonical JSON TEXT for storage.
func canonicalText(v ir.IRValue) (string, error) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// marshalConfig stores a runtime config. The timeout is kept in
// nanoseconds.
func marshalConfig(cfg runtime.Config) (string, error) {
	return canonicalText(ir.IRObject{
		"max_iterations": ir.IRInt(cfg.MaxIterations),
		"timeout_ns":     ir.IRInt(cfg.Timeout.Nanoseconds()),
		"parallel":       ir.IRBool(cfg.Parallel),
		"workers":        ir.IRInt(cfg.Workers),
	})
}

func unmarshalConfig(data string) (runtime.Config, error) {
	v, err := ir.UnmarshalIRValue([]byte(data))
	if err != nil {
		return runtime.Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return runtime.Config{}, fmt.Errorf("unmarshal config: want object, got %T", v)
	}
	var cfg runtime.Config
	ints := map[string]*int64{}
	var maxIter, timeout, workers int64
	ints["max_iterations"] = &maxIter
	ints["timeout_ns"] = &timeout
	ints["workers"] = &workers
	for key, dst := range ints {
		n, ok := obj[key].(ir.IRInt)
		if !ok {
			return runtime.Config{}, fmt.Errorf("unmarshal config: %s must be an integer", key)
		}
		*dst = int64(n)
	}
	parallel, ok := obj["parallel"].(ir.IRBool)
	if !ok {
		return runtime.Config{}, fmt.Errorf("unmarshal config: parallel must be a boolean")
	}
	cfg.MaxIterations = int(maxIter)
	cfg.Timeout = time.Duration(timeout)
	cfg.Workers = int(workers)
	cfg.Parallel = bool(parallel)
	return cfg, nil
}

func marshalEdges(edges []graph.Edge) (string, error) {
	arr := make(ir.IRArray, len(edges))
	for i, e := range edges {
		arr[i] = graph.EncodeEdge(e)
	}
	return canonicalText(arr)
}

func unmarshalEdges(data string) ([]graph.Edge, error) {
	v, err := ir.UnmarshalIRValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal edge order: %w", err)
	}
	arr, ok := v.(ir.IRArray)
	if !ok {
		return nil, fmt.Errorf("unmarshal edge order: want array, got %T", v)
	}
	edges := make([]graph.Edge, 0, len(arr))
	for i, item := range arr {
		e, err := graph.DecodeEdge(item)
		if err != nil {
			return nil, fmt.Errorf("unmarshal edge order [%d]: %w", i, err)
		}
		edges = append(edges, e)
	}
	return edges, nil
}
