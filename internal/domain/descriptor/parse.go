package descriptor

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tidwall/jsonc"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/descriptor.schema.json
var schemaBytes []byte

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
	printer        = message.NewPrinter(language.English)
)

// getSchema compiles the embedded JSON schema once and returns it.
func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal descriptor schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err = c.AddResource("descriptor.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("add descriptor schema: %w", err)
			return
		}

		compiledSchema, compileErr = c.Compile("descriptor.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compile descriptor schema: %w", compileErr)
		}
	})

	return compiledSchema, compileErr
}

// Parse decodes descriptor JSON. Comments and trailing commas are tolerated.
// Any document that does not describe a well-formed descriptor yields ErrMalformedDescriptor.
func Parse(data []byte) (*Descriptor, error) {
	schema, err := getSchema()
	if err != nil {
		return nil, err
	}

	clean := jsonc.ToJSON(data)

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(clean))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDescriptor, err)
	}

	if err = schema.Validate(inst); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return nil, fmt.Errorf("%w: %s", ErrMalformedDescriptor, strings.Join(issues(ve), "; "))
		}

		return nil, fmt.Errorf("%w: %w", ErrMalformedDescriptor, err)
	}

	var d Descriptor
	if err = json.Unmarshal(clean, &d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDescriptor, err)
	}

	d.Name = strings.TrimSpace(d.Name)
	d.Version = strings.TrimSpace(d.Version)
	d.TargetAppVersion = strings.TrimSpace(d.TargetAppVersion)

	if err = d.Validate(); err != nil {
		return nil, err
	}

	return &d, nil
}

// issues flattens a validation error tree into "location: message" leaves.
func issues(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		location := "/" + strings.Join(ve.InstanceLocation, "/")

		msg := ve.Error()
		if ve.ErrorKind != nil {
			msg = ve.ErrorKind.LocalizedString(printer)
		}

		return []string{location + ": " + msg}
	}

	var result []string
	for _, cause := range ve.Causes {
		result = append(result, issues(cause)...)
	}

	return result
}
