package main

import (
	"context"
	"strings"

	"github.com/talenthos/talenthos/evaluate"
)

// devEvaluator is a stand-in AI collaborator for local runs. It produces a
// fixed-shape assessment from the interview notes without calling a provider.
type devEvaluator struct{}

func newDevEvaluator() *devEvaluator { return &devEvaluator{} }

func (devEvaluator) Evaluate(_ context.Context, notes string) (*evaluate.Result, error) {
	summary := strings.TrimSpace(notes)
	if summary == "" {
		summary = "No interviewer notes recorded."
	}
	return &evaluate.Result{
		Score:     0.5,
		Summary:   summary,
		Strengths: []string{"pending human review"},
		Risks:     []string{"automated placeholder evaluation"},
	}, nil
}
