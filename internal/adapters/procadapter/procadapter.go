// Package procadapter implements adapters.Evaluator and adapters.Proposer
// by shelling out to an external command per call, one JSON document on
// stdin and one JSON document read back from stdout. This keeps the
// back-tester and the representation generator genuinely external
// processes rather than in-core Go code, matching the source design
// where both are separate Python components invoked by the evolution
// loop rather than linked into it.
//
// Grounded on luxfi-consensus/test/e2e/python_node.go's PythonNode, which
// wraps an external Python process with exec.Command and treats an
// unreachable/misbehaving process as a local adapter failure rather than
// a panic; generalised here from "one long-lived subprocess" to "one
// short-lived subprocess per call", which keeps the wire protocol to a
// single request/response document and needs no process supervision.
package procadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/PaiCY-T/evoengine/internal/adapters"
	"github.com/PaiCY-T/evoengine/internal/individual"
	"github.com/PaiCY-T/evoengine/internal/objective"
)

// run executes argv[0] with argv[1:], feeding in on stdin and returning
// stdout. ctx cancellation kills the process; timeout bounds it
// independently if positive.
func run(ctx context.Context, argv []string, in []byte, timeout time.Duration) ([]byte, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("procadapter: empty command")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = bytes.NewReader(in)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("procadapter: running %v: %w (stderr: %s)", argv, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// EvaluatorProcess implements adapters.Evaluator by invoking Command once
// per individual.
type EvaluatorProcess struct {
	Command []string
	Timeout time.Duration
}

var _ adapters.Evaluator = EvaluatorProcess{}
var _ adapters.Proposer = ProposerProcess{}

type evalRequest struct {
	ID             string            `json:"id"`
	Representation string            `json:"representation"`
	Parameters     individual.Params `json:"parameters"`
}

// Evaluate feeds the individual's representation and parameters to the
// configured command and decodes its stdout as objective.Metrics. A
// process that cannot be started or times out is an adapter-level
// failure and is returned as a Go error (the scheduler converts it to
// Success:false locally per adapters.Evaluator's contract); a process
// that runs but emits a malformed document is treated the same way the
// source treats a backtester exception, as a failed evaluation rather
// than a crash.
func (e EvaluatorProcess) Evaluate(ctx context.Context, ind *individual.Individual) (objective.Metrics, error) {
	req := evalRequest{ID: ind.ID, Representation: ind.Representation, Parameters: ind.Parameters}
	payload, err := json.Marshal(req)
	if err != nil {
		return objective.Metrics{}, fmt.Errorf("procadapter: marshalling eval request: %w", err)
	}
	out, err := run(ctx, e.Command, payload, e.Timeout)
	if err != nil {
		return objective.Metrics{}, err
	}
	var metrics objective.Metrics
	if err := json.Unmarshal(out, &metrics); err != nil {
		return objective.Metrics{Success: false}, nil
	}
	return metrics, nil
}

// ProposerProcess implements adapters.Proposer by invoking Command once
// per call, dispatched on the "op" field of the request document.
type ProposerProcess struct {
	Command []string
	Timeout time.Duration
}

type proposerRequest struct {
	Op              string                        `json:"op"`
	Representation  string                        `json:"representation,omitempty"`
	Representation2 string                        `json:"representation2,omitempty"` // second parent, crossover only
	Target          individual.Params             `json:"target,omitempty"`
	Hint            string                        `json:"hint,omitempty"`
	HintParams      individual.Params             `json:"hint_params,omitempty"`
	Profile         map[string]individual.Params  `json:"profile,omitempty"`
	N               int                           `json:"n,omitempty"`
}

type proposerResponse struct {
	Representation  string                        `json:"representation"`
	OK              bool                          `json:"ok"`
	Valid           bool                          `json:"valid"`
	Profile         map[string]individual.Params  `json:"profile"`
	Representations []string                      `json:"representations"`
}

func (p ProposerProcess) call(ctx context.Context, req proposerRequest) (proposerResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return proposerResponse{}, fmt.Errorf("procadapter: marshalling %s request: %w", req.Op, err)
	}
	out, err := run(ctx, p.Command, payload, p.Timeout)
	if err != nil {
		return proposerResponse{}, err
	}
	var resp proposerResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return proposerResponse{}, fmt.Errorf("procadapter: decoding %s response: %w", req.Op, err)
	}
	return resp, nil
}

func (p ProposerProcess) ProposeCrossover(ctx context.Context, p1, p2 *individual.Individual, target individual.Params) (string, bool, error) {
	resp, err := p.call(ctx, proposerRequest{Op: "crossover", Representation: p1.Representation, Representation2: p2.Representation, Target: target})
	if err != nil {
		return "", false, err
	}
	return resp.Representation, resp.OK, nil
}

func (p ProposerProcess) ProposeMutation(ctx context.Context, parent *individual.Individual, hint adapters.MutationHint) (string, bool, error) {
	resp, err := p.call(ctx, proposerRequest{Op: "mutation", Representation: parent.Representation, Hint: hint.Reason, HintParams: hint.Params})
	if err != nil {
		return "", false, err
	}
	return resp.Representation, resp.OK, nil
}

func (p ProposerProcess) Validate(ctx context.Context, representation string) (bool, error) {
	resp, err := p.call(ctx, proposerRequest{Op: "validate", Representation: representation})
	if err != nil {
		return false, err
	}
	return resp.Valid, nil
}

func (p ProposerProcess) ParseExitProfile(ctx context.Context, representation string) (map[string]individual.Params, bool, error) {
	resp, err := p.call(ctx, proposerRequest{Op: "parse_exit_profile", Representation: representation})
	if err != nil {
		return nil, false, err
	}
	return resp.Profile, resp.OK, nil
}

func (p ProposerProcess) SynthesizeExitProfile(ctx context.Context, parent *individual.Individual, profile map[string]individual.Params) (string, bool, error) {
	resp, err := p.call(ctx, proposerRequest{Op: "synthesize_exit_profile", Representation: parent.Representation, Profile: profile})
	if err != nil {
		return "", false, err
	}
	return resp.Representation, resp.OK, nil
}

func (p ProposerProcess) Seed(ctx context.Context, n int) ([]string, error) {
	resp, err := p.call(ctx, proposerRequest{Op: "seed", N: n})
	if err != nil {
		return nil, err
	}
	return resp.Representations, nil
}
