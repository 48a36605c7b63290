package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// Loader reads defaults files. Files ending in .cue are evaluated with CUE
// and checked against the defaults schema; everything else is parsed as
// YAML. Values present in a file override the built-in defaults; absent
// values keep them.
type Loader struct {
	ctx     *cue.Context
	schemas *SchemaRegistry
}

// NewLoader creates a new defaults loader.
func NewLoader() *Loader {
	ctx := cuecontext.New()
	return &Loader{
		ctx:     ctx,
		schemas: NewSchemaRegistry(ctx),
	}
}

// Load returns the built-in defaults overlaid with the file at path. An
// empty path returns the built-in defaults.
func (l *Loader) Load(path string) (*Defaults, error) {
	defaults := DefaultDefaults()
	if path == "" {
		return defaults, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read defaults file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		err = l.overlayCUE(defaults, path, content)
	default:
		err = overlayYAML(defaults, path, content)
	}
	if err != nil {
		return nil, err
	}

	if err := defaults.Validate(); err != nil {
		var verrs ValidationErrors
		if errors.As(err, &verrs) {
			for i := range verrs {
				verrs[i].File = path
			}
			return nil, verrs
		}
		return nil, err
	}
	return defaults, nil
}

// LoadInline overlays inline CUE content. It is used by tests and by the
// doctor command to check snippets.
func (l *Loader) LoadInline(content string) (*Defaults, error) {
	defaults := DefaultDefaults()
	if err := l.overlayCUE(defaults, "inline", []byte(content)); err != nil {
		return nil, err
	}
	if err := defaults.Validate(); err != nil {
		return nil, err
	}
	return defaults, nil
}

func overlayYAML(defaults *Defaults, path string, content []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(defaults); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return ValidationErrors{{File: path, Message: err.Error()}}
	}
	return nil
}

func (l *Loader) overlayCUE(defaults *Defaults, path string, content []byte) error {
	val := l.ctx.CompileBytes(content, cue.Filename(path))
	if err := val.Err(); err != nil {
		return convertCUEErrors(err)
	}

	val, err := l.schemas.Validate(SchemaDefaults, val)
	if err != nil {
		return convertCUEErrors(err)
	}

	data, err := val.MarshalJSON()
	if err != nil {
		return convertCUEErrors(err)
	}
	if err := json.Unmarshal(data, defaults); err != nil {
		return fmt.Errorf("failed to decode defaults from %s: %w", path, err)
	}
	return nil
}

// convertCUEErrors converts CUE errors to ValidationErrors.
func convertCUEErrors(err error) ValidationErrors {
	var out ValidationErrors
	for _, e := range cueerrors.Errors(err) {
		ve := ValidationError{
			Path:    strings.Join(e.Path(), "."),
			Message: cueerrors.Details(e, nil),
		}
		if pos := cueerrors.Positions(e); len(pos) > 0 {
			ve.File = pos[0].Filename()
			ve.Line = pos[0].Line()
			ve.Column = pos[0].Column()
		}
		out = append(out, ve)
	}
	if len(out) == 0 {
		out = append(out, ValidationError{Message: err.Error()})
	}
	return out
}
