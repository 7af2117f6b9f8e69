package stages

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ManifestInfo identifies one document in a rendered manifest stream.
type ManifestInfo struct {
	APIVersion string
	Kind       string
	Name       string
	Namespace  string
}

func (m ManifestInfo) String() string {
	if m.Namespace == "" {
		return fmt.Sprintf("%s/%s", m.Kind, m.Name)
	}
	return fmt.Sprintf("%s/%s (%s)", m.Kind, m.Name, m.Namespace)
}

// parseManifests summarizes a multi-document YAML stream, skipping empty
// documents.
func parseManifests(stream []byte) ([]ManifestInfo, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(stream))
	var infos []ManifestInfo

	for {
		var doc map[string]any
		err := decoder.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding manifest document: %w", err)
		}
		if len(doc) == 0 {
			continue
		}

		var info ManifestInfo
		if v, ok := doc["apiVersion"].(string); ok {
			info.APIVersion = v
		}
		if v, ok := doc["kind"].(string); ok {
			info.Kind = v
		}
		if meta, ok := doc["metadata"].(map[string]any); ok {
			if v, ok := meta["name"].(string); ok {
				info.Name = v
			}
			if v, ok := meta["namespace"].(string); ok {
				info.Namespace = v
			}
		}
		infos = append(infos, info)
	}

	return infos, nil
}
