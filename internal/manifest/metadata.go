// Package manifest reads the metadata written by the bundler and resolves it
// into the launch bundle and asset files for each platform.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tomasbasham/assetpub/internal/asset"
)

// MetadataFile is the name of the metadata file within the input directory.
const MetadataFile = "metadata.json"

const metadataSchemaURL = "https://assetpub.schemas.local/metadata.schema.json"

const metadataSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "bundler", "fileMetadata"],
  "properties": {
    "version": {"type": "number"},
    "bundler": {"type": "string"},
    "fileMetadata": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["bundle", "assets"],
        "properties": {
          "bundle": {"type": "string", "minLength": 1},
          "assets": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["path", "ext"],
              "properties": {
                "path": {"type": "string", "minLength": 1},
                "ext": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`

var metadataSchema = jsonschema.MustCompileString(metadataSchemaURL, metadataSchemaJSON)

// Metadata is the bundler's description of its output.
type Metadata struct {
	Version      float64                           `json:"version"`
	Bundler      string                            `json:"bundler"`
	FileMetadata map[asset.Platform]PlatformMetadata `json:"fileMetadata"`
}

// PlatformMetadata lists the files produced for one platform. Paths are
// relative to the input directory.
type PlatformMetadata struct {
	Bundle string           `json:"bundle"`
	Assets []AssetReference `json:"assets"`
}

// AssetReference is a single asset file and its extension without the dot.
type AssetReference struct {
	Path string `json:"path"`
	Ext  string `json:"ext"`
}

// ParseMetadata validates b against the metadata schema and decodes it.
func ParseMetadata(b []byte) (*Metadata, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := metadataSchema.Validate(doc); err != nil {
		return nil, err
	}

	var m Metadata
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
