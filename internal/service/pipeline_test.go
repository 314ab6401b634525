package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestPipeline_RunsInOrder(t *testing.T) {
	var seen []string
	stage := func(name string) Stage {
		return Stage{Name: name, Run: func(context.Context, *Analysis) error {
			seen = append(seen, name)
			return nil
		}}
	}
	p := NewPipeline(zap.NewNop(), stage("a"), stage("b"), stage("c"))
	a := &Analysis{}
	if err := p.Run(context.Background(), a); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(seen, want) || !reflect.DeepEqual(p.Stages(), want) {
		t.Fatalf("ran %v, stages %v", seen, p.Stages())
	}
	if len(a.Timings) != 3 || a.Timings[2].Stage != "c" {
		t.Errorf("timings = %v", a.Timings)
	}
}

func TestPipeline_StopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	ran := false
	p := NewPipeline(nil,
		Stage{Name: "fail", Run: func(context.Context, *Analysis) error { return boom }},
		Stage{Name: "after", Run: func(context.Context, *Analysis) error { ran = true; return nil }},
	)
	err := p.Run(context.Background(), &Analysis{})
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "stage fail") {
		t.Fatalf("err = %v", err)
	}
	if ran {
		t.Errorf("stage after a failure ran")
	}
}

func TestPipeline_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPipeline(nil, Stage{Name: "never", Run: func(context.Context, *Analysis) error {
		t.Fatalf("stage ran on a cancelled context")
		return nil
	}})
	if err := p.Run(ctx, &Analysis{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
