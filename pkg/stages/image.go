package stages

import (
	"context"
	"errors"
)

// CommandImageBuilder builds the container image with a configured command.
// The tag and full reference reach the command as SHIPLINE_IMAGE_TAG and
// SHIPLINE_IMAGE_REF.
type CommandImageBuilder struct {
	Runner     *Runner
	Command    string
	Repository string
}

func (b *CommandImageBuilder) BuildImage(ctx context.Context, tag string) (string, error) {
	if b.Command == "" {
		return "", errors.New("image.command is not configured")
	}
	if b.Repository == "" {
		return "", errors.New("image.repository is not configured")
	}
	if tag == "" {
		return "", errors.New("image tag is empty")
	}

	ref := b.Repository + ":" + tag
	_, err := b.Runner.Run(ctx, b.Command, map[string]string{
		"SHIPLINE_IMAGE_TAG": tag,
		"SHIPLINE_IMAGE_REF": ref,
	})
	if err != nil {
		return "", err
	}
	return ref, nil
}

// CommandPusher publishes the image with a configured command. The reference
// reaches it as SHIPLINE_IMAGE_REF.
type CommandPusher struct {
	Runner  *Runner
	Command string
}

func (p *CommandPusher) Push(ctx context.Context, imageRef string) (string, error) {
	if p.Command == "" {
		return "", errors.New("push.command is not configured")
	}
	if imageRef == "" {
		return "", errors.New("image reference is empty")
	}
	if _, err := p.Runner.Run(ctx, p.Command, map[string]string{"SHIPLINE_IMAGE_REF": imageRef}); err != nil {
		return "", err
	}
	return imageRef, nil
}
