package stages

import (
	"context"
	"errors"
)

// CommandTester runs the configured test command.
type CommandTester struct {
	Runner  *Runner
	Command string
}

func (t *CommandTester) Test(ctx context.Context) (TestReport, error) {
	if t.Command == "" {
		return TestReport{}, errors.New("test.command is not configured")
	}
	out, err := t.Runner.Run(ctx, t.Command, nil)
	if err != nil {
		return TestReport{}, err
	}
	return TestReport{Passed: true, Summary: lastLine(out)}, nil
}

// CommandScanner runs the configured source scan command.
type CommandScanner struct {
	Runner  *Runner
	Command string
}

func (s *CommandScanner) Scan(ctx context.Context) (ScanReport, error) {
	if s.Command == "" {
		return ScanReport{}, errors.New("scan.command is not configured")
	}
	out, err := s.Runner.Run(ctx, s.Command, nil)
	if err != nil {
		return ScanReport{}, err
	}
	return ScanReport{Passed: true, Summary: lastLine(out)}, nil
}

// CommandImageScanner scans a built image. The image reference reaches the
// command as SHIPLINE_IMAGE_REF.
type CommandImageScanner struct {
	Runner  *Runner
	Command string
}

func (s *CommandImageScanner) ScanImage(ctx context.Context, imageRef string) (ScanReport, error) {
	if s.Command == "" {
		return ScanReport{}, errors.New("imagescan.command is not configured")
	}
	out, err := s.Runner.Run(ctx, s.Command, map[string]string{"SHIPLINE_IMAGE_REF": imageRef})
	if err != nil {
		return ScanReport{}, err
	}
	return ScanReport{Passed: true, Summary: lastLine(out)}, nil
}
