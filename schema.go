package waypointconv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const sceneSchemaURL = "mem://schemas/scene-waypoints.json"

// sceneSchema describes a scene waypoint document.
const sceneSchema = `{
  "type": "object",
  "required": ["sceneWaypoints"],
  "properties": {
    "sceneWaypoints": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["waypoints"],
        "properties": {
          "sceneId": {"type": "string"},
          "coordSystem": {"enum": ["pixel", "percent"]},
          "image": {
            "type": "object",
            "properties": {
              "path": {"type": "string"},
              "width": {"type": "number", "minimum": 0},
              "height": {"type": "number", "minimum": 0}
            }
          },
          "waypoints": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["waypointId", "x", "y"],
              "properties": {
                "waypointId": {"type": "string", "minLength": 1},
                "x": {"type": "number"},
                "y": {"type": "number"}
              }
            }
          }
        }
      }
    }
  }
}`

var (
	sceneSchemaOnce     sync.Once
	compiledSceneSchema *jsonschema.Schema
	sceneSchemaErr      error
)

// loadSceneSchema compiles the scene document schema on first use.
func loadSceneSchema() (*jsonschema.Schema, error) {
	sceneSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(sceneSchemaURL, strings.NewReader(sceneSchema)); err != nil {
			sceneSchemaErr = fmt.Errorf("failed to add the scene schema: %v", err)
			return
		}
		compiledSceneSchema, sceneSchemaErr = compiler.Compile(sceneSchemaURL)
	})
	return compiledSceneSchema, sceneSchemaErr
}

// validateSceneDocument checks the raw JSON document enc against the scene schema.
func validateSceneDocument(enc []byte) error {
	schema, err := loadSceneSchema()
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(enc))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return err
	}

	return schema.Validate(doc)
}
