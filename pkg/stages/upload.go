package stages

import (
	"context"
	"errors"
)

// CommandUploader copies the build artifact to its configured destination,
// e.g. an S3 URL rendered from config. The artifact path and destination
// reach the command as SHIPLINE_ARTIFACT and SHIPLINE_DESTINATION.
type CommandUploader struct {
	Runner      *Runner
	Command     string
	Destination string
}

func (u *CommandUploader) Upload(ctx context.Context, artifact string) (string, error) {
	if u.Command == "" {
		return "", errors.New("upload.command is not configured")
	}
	if u.Destination == "" {
		return "", errors.New("upload.destination is not configured")
	}
	_, err := u.Runner.Run(ctx, u.Command, map[string]string{
		"SHIPLINE_ARTIFACT":    artifact,
		"SHIPLINE_DESTINATION": u.Destination,
	})
	if err != nil {
		return "", err
	}
	return u.Destination, nil
}
