package stages

import "context"

// TestReport summarizes a test run.
type TestReport struct {
	Passed  bool
	Summary string
}

// ScanReport summarizes a source or image scan.
type ScanReport struct {
	Passed  bool
	Summary string
}

// Builder produces the service artifact and returns its path.
type Builder interface {
	Build(ctx context.Context) (string, error)
}

// Tester runs the test suite.
type Tester interface {
	Test(ctx context.Context) (TestReport, error)
}

// Scanner checks the source tree.
type Scanner interface {
	Scan(ctx context.Context) (ScanReport, error)
}

// Uploader copies the artifact to long-term storage and returns where it
// ended up.
type Uploader interface {
	Upload(ctx context.Context, artifact string) (string, error)
}

// ImageBuilder builds the container image for a tag and returns the full
// image reference.
type ImageBuilder interface {
	BuildImage(ctx context.Context, tag string) (string, error)
}

// ImageScanner checks a built image.
type ImageScanner interface {
	ScanImage(ctx context.Context, imageRef string) (ScanReport, error)
}

// Pusher publishes the image to its registry and returns the pushed
// reference.
type Pusher interface {
	Push(ctx context.Context, imageRef string) (string, error)
}

// Deployer rolls the release out to the target environment.
type Deployer interface {
	Deploy(ctx context.Context, chart, valuesFile, namespace string) (string, error)
}

// Previewer is implemented by deployers that can render what a deploy would
// apply without touching the cluster.
type Previewer interface {
	Preview(ctx context.Context, chart, valuesFile, namespace string) ([]ManifestInfo, error)
}
